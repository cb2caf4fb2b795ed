package connection

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/busdi/errors"
)

// Parser turns a connection string into a Configuration.
type Parser interface {
	Parse(connectionString string) (*Configuration, error)
}

// StringParser parses "key=value" pairs separated by semicolons. Keys are
// case-insensitive:
//
//	host=rabbit1:5673,rabbit2;virtualHost=orders;username=app;password=secret;
//	port=5672;requestedHeartbeat=10;prefetchcount=50;timeout=10;
//	publisherConfirms=true;persistentMessages=false;product=orders;
//	platform=k8s;name=orders-api;amqp=amqps://rabbit/orders
//
// timeout and requestedHeartbeat are in seconds. The result carries the
// defaults for every key not given and is not validated.
type StringParser struct{}

var _ Parser = StringParser{}

type setter func(c *Configuration, value string) error

var setters = map[string]setter{
	"host":                   setHosts,
	"virtualhost":            setString(func(c *Configuration) *string { return &c.VirtualHost }),
	"username":               setString(func(c *Configuration) *string { return &c.UserName }),
	"password":               setString(func(c *Configuration) *string { return &c.Password }),
	"product":                setString(func(c *Configuration) *string { return &c.Product }),
	"platform":               setString(func(c *Configuration) *string { return &c.Platform }),
	"name":                   setString(func(c *Configuration) *string { return &c.Name }),
	"amqp":                   setString(func(c *Configuration) *string { return &c.AMQP }),
	"port":                   setUint16(func(c *Configuration) *int { return &c.Port }),
	"requestedheartbeat":     setUint16(func(c *Configuration) *int { return &c.RequestedHeartbeat }),
	"prefetchcount":          setUint16(func(c *Configuration) *int { return &c.PrefetchCount }),
	"dispatcherqueuesize":    setUint16(func(c *Configuration) *int { return &c.DispatcherQueueSize }),
	"timeout":                setSeconds(func(c *Configuration) *time.Duration { return &c.Timeout }),
	"connectintervalattempt": setSeconds(func(c *Configuration) *time.Duration { return &c.ConnectIntervalAttempt }),
	"publisherconfirms":      setBool(func(c *Configuration) *bool { return &c.PublisherConfirms }),
	"persistentmessages":     setBool(func(c *Configuration) *bool { return &c.PersistentMessages }),
}

// Parse implements Parser.
func (StringParser) Parse(connectionString string) (*Configuration, error) {
	c := NewConfiguration()
	for _, pair := range strings.Split(connectionString, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.InvalidArgument("connection string", fmt.Sprintf("%q is not a key=value pair", pair))
		}
		key = strings.ToLower(strings.TrimSpace(key))
		set, known := setters[key]
		if !known {
			return nil, errors.InvalidArgument("connection string", fmt.Sprintf("unknown key %q", key))
		}
		if err := set(c, strings.TrimSpace(value)); err != nil {
			return nil, errors.InvalidArgument(key, err.Error()).WithCause(err)
		}
	}
	return c, nil
}

func setHosts(c *Configuration, value string) error {
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		h := Host{Host: entry}
		if name, port, ok := strings.Cut(entry, ":"); ok {
			p, err := parseUint16(port)
			if err != nil {
				return fmt.Errorf("host %q: %w", entry, err)
			}
			h = Host{Host: name, Port: p}
		}
		c.Hosts = append(c.Hosts, h)
	}
	return nil
}

func setString(field func(*Configuration) *string) setter {
	return func(c *Configuration, value string) error {
		*field(c) = value
		return nil
	}
}

func setUint16(field func(*Configuration) *int) setter {
	return func(c *Configuration, value string) error {
		n, err := parseUint16(value)
		if err != nil {
			return err
		}
		*field(c) = n
		return nil
	}
}

func setSeconds(field func(*Configuration) *time.Duration) setter {
	return func(c *Configuration, value string) error {
		n, err := parseUint16(value)
		if err != nil {
			return err
		}
		*field(c) = time.Duration(n) * time.Second
		return nil
	}
}

func setBool(field func(*Configuration) *bool) setter {
	return func(c *Configuration, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%q is not a boolean", value)
		}
		*field(c) = b
		return nil
	}
}

func parseUint16(value string) (int, error) {
	n, err := strconv.ParseUint(value, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number between 0 and 65535", value)
	}
	return int(n), nil
}

package connection

import (
	"fmt"
	"maps"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kbukum/busdi/errors"
	"github.com/kbukum/busdi/validation"
	"github.com/kbukum/busdi/version"
)

const (
	// DefaultPort is the AMQP port.
	DefaultPort = 5672
	// DefaultAMQPSPort is the AMQP over TLS port.
	DefaultAMQPSPort = 5671
)

// Host is one broker endpoint. A zero Port takes the configuration port.
type Host struct {
	Host string `mapstructure:"host" validate:"required"`
	Port int    `mapstructure:"port" validate:"gte=0,lte=65535"`
}

func (h Host) String() string {
	if h.Port == 0 {
		return h.Host
	}
	return h.Host + ":" + strconv.Itoa(h.Port)
}

// Configuration describes how a bus connects to its broker.
type Configuration struct {
	Hosts       []Host `mapstructure:"hosts" validate:"dive"`
	Port        int    `mapstructure:"port" validate:"gte=1,lte=65535"`
	VirtualHost string `mapstructure:"virtual_host" validate:"required"`
	UserName    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`

	// AMQP is an amqp:// or amqps:// URI merged into Hosts by Validate.
	AMQP string `mapstructure:"amqp"`

	// RequestedHeartbeat is the heartbeat interval in seconds.
	RequestedHeartbeat int           `mapstructure:"requested_heartbeat" validate:"gte=0,lte=65535"`
	Timeout            time.Duration `mapstructure:"timeout" validate:"gt=0"`
	PrefetchCount      int           `mapstructure:"prefetch_count" validate:"gte=0,lte=65535"`
	PublisherConfirms  bool          `mapstructure:"publisher_confirms"`
	PersistentMessages bool          `mapstructure:"persistent_messages"`

	Product  string `mapstructure:"product"`
	Platform string `mapstructure:"platform"`
	Name     string `mapstructure:"name"`

	ConnectIntervalAttempt time.Duration `mapstructure:"connect_interval_attempt" validate:"gt=0"`
	DispatcherQueueSize    int           `mapstructure:"dispatcher_queue_size" validate:"gt=0"`

	// ClientProperties are reported to the broker. Validate adds the
	// defaults without overwriting keys already present.
	ClientProperties map[string]any `mapstructure:"client_properties"`
}

// NewConfiguration returns a configuration with every default set.
func NewConfiguration() *Configuration {
	c := &Configuration{PersistentMessages: true}
	c.ApplyDefaults()
	return c
}

// ApplyDefaults sets defaults for zero-valued fields. Boolean fields keep
// their value; NewConfiguration starts with persistent messages on.
func (c *Configuration) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.VirtualHost == "" {
		c.VirtualHost = "/"
	}
	if c.UserName == "" {
		c.UserName = "guest"
	}
	if c.Password == "" {
		c.Password = "guest"
	}
	if c.RequestedHeartbeat == 0 {
		c.RequestedHeartbeat = 10
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.PrefetchCount == 0 {
		c.PrefetchCount = 50
	}
	if c.ConnectIntervalAttempt == 0 {
		c.ConnectIntervalAttempt = 5 * time.Second
	}
	if c.DispatcherQueueSize == 0 {
		c.DispatcherQueueSize = 1024
	}
	if c.ClientProperties == nil {
		c.ClientProperties = make(map[string]any)
	}
}

// Clone returns a copy of c that shares no hosts or client properties
// with it.
func (c *Configuration) Clone() *Configuration {
	clone := *c
	clone.Hosts = slices.Clone(c.Hosts)
	clone.ClientProperties = maps.Clone(c.ClientProperties)
	return &clone
}

// Validate merges the AMQP URI into the hosts, requires at least one host,
// fills host ports and sets the default client properties. It completes c
// in place; validate a Clone to keep the original. It fails with
// INVALID_ARGUMENT.
func (c *Configuration) Validate() error {
	if c.ClientProperties == nil {
		c.ClientProperties = make(map[string]any)
	}
	if err := c.mergeAMQP(); err != nil {
		return err
	}
	if len(c.Hosts) == 0 {
		return errors.InvalidArgument("host", `a host must be supplied, e.g. "host=myserver"`)
	}
	if err := validation.Validate(c); err != nil {
		return err
	}

	for i := range c.Hosts {
		if c.Hosts[i].Port == 0 {
			c.Hosts[i].Port = c.Port
		}
	}
	c.setDefaultClientProperties()
	return nil
}

func (c *Configuration) mergeAMQP() error {
	if c.AMQP == "" {
		return nil
	}
	v := validation.New().URI("amqp", c.AMQP, "amqp", "amqps")
	if err := v.Validate(); err != nil {
		return err
	}
	u, _ := url.Parse(c.AMQP)
	if u.Hostname() == "" {
		return errors.InvalidArgument("amqp", "URI has no host")
	}
	if slices.ContainsFunc(c.Hosts, func(h Host) bool { return h.Host == u.Hostname() }) {
		return nil
	}

	if c.Port == DefaultPort {
		if p := u.Port(); p != "" {
			port, err := strconv.Atoi(p)
			if err != nil {
				return errors.InvalidArgument("amqp", fmt.Sprintf("invalid port %q", p))
			}
			c.Port = port
		} else if strings.EqualFold(u.Scheme, "amqps") {
			c.Port = DefaultAMQPSPort
		}
	}
	if vhost := strings.Trim(u.Path, "/"); vhost != "" {
		c.VirtualHost = path.Base(vhost)
	}
	c.Hosts = append(c.Hosts, Host{Host: u.Hostname()})
	return nil
}

func (c *Configuration) setDefaultClientProperties() {
	appName, appPath := "unknown", "unknown"
	if len(os.Args) > 0 && strings.TrimSpace(os.Args[0]) != "" {
		appName = filepath.Base(os.Args[0])
		appPath = filepath.Dir(os.Args[0])
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	c.addIfMissing("client_api", "busdi")
	c.addIfMissing("product", orDefault(c.Product, appName))
	c.addIfMissing("platform", orDefault(c.Platform, version.Platform()))
	c.addIfMissing("os", runtime.GOOS+"/"+runtime.GOARCH)
	c.addIfMissing("version", applicationVersion())
	c.addIfMissing("connection_name", orDefault(c.Name, appName))
	c.addIfMissing("busdi_version", version.Library())
	c.addIfMissing("application", appName)
	c.addIfMissing("application_location", appPath)
	c.addIfMissing("machine_name", hostname)
	c.addIfMissing("user", c.UserName)
	c.addIfMissing("connected", time.Now().UTC().Format("2006-01-02 15:04:05Z"))
	c.addIfMissing("requested_heartbeat", strconv.Itoa(c.RequestedHeartbeat))
	c.addIfMissing("timeout", strconv.Itoa(int(c.Timeout/time.Second)))
	c.addIfMissing("publisher_confirms", strconv.FormatBool(c.PublisherConfirms))
	c.addIfMissing("persistent_messages", strconv.FormatBool(c.PersistentMessages))
}

func (c *Configuration) addIfMissing(key string, value any) {
	if _, ok := c.ClientProperties[key]; !ok {
		c.ClientProperties[key] = value
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func applicationVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return "unknown"
}

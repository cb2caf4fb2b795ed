package di

import (
	"fmt"
	"strings"

	"github.com/kbukum/busdi/errors"
)

// Lifetime determines how long a produced instance lives relative to the
// scope that owns it.
type Lifetime int

const (
	Singleton Lifetime = iota // One instance per container, built on first resolve
	Transient                 // New instance on every resolve
)

// String returns the lowercase name of the lifetime.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Transient:
		return "transient"
	default:
		return fmt.Sprintf("lifetime(%d)", int(l))
	}
}

// Validate returns an INVALID_ARGUMENT error for values outside the enumeration.
func (l Lifetime) Validate() error {
	switch l {
	case Singleton, Transient:
		return nil
	default:
		return errors.InvalidArgument("lifetime", fmt.Sprintf("unsupported value %d", int(l)))
	}
}

// ParseLifetime converts "singleton" or "transient" (any case) to a Lifetime.
func ParseLifetime(s string) (Lifetime, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "singleton", "":
		return Singleton, nil
	case "transient":
		return Transient, nil
	default:
		return Singleton, errors.InvalidArgument("lifetime", fmt.Sprintf("unknown lifetime %q", s))
	}
}

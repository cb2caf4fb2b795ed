package bootstrap

import (
	"fmt"

	"github.com/kbukum/busdi/di"
)

// Hook runs against the built resolver, e.g. to warm services.
type Hook func(r di.Resolver) error

// runHooks executes hooks sequentially, returning the first error.
func runHooks(r di.Resolver, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(r); err != nil {
			return fmt.Errorf("hook %d failed: %w", i, err)
		}
	}
	return nil
}

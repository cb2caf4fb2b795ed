package di_test

import (
	"testing"

	"github.com/kbukum/busdi/di"
	"github.com/kbukum/busdi/ditest"
)

func TestContainerConformance(t *testing.T) {
	ditest.Run(t, func(*testing.T) di.Adapter {
		return di.NewContainer()
	})
}

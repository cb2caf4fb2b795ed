package connection

import (
	"github.com/kbukum/busdi/config"
)

// Section is the config file key holding the connection configuration.
const Section = "bus"

// Load reads the "bus" section of the service configuration over the
// defaults of NewConfiguration. Scalar environment variables such as
// BUS_VIRTUAL_HOST or BUS_PREFETCH_COUNT override the file.
func Load(serviceName string, opts ...config.LoaderOption) (*Configuration, error) {
	file := struct {
		Bus *Configuration `mapstructure:"bus"`
	}{Bus: NewConfiguration()}

	if err := config.LoadConfig(serviceName, &file, opts...); err != nil {
		return nil, err
	}
	return file.Bus, nil
}

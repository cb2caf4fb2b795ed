// Package config loads configuration files and environment variables into
// structs using Viper and godotenv.
//
// A config.yml is searched in the usual service locations, a .env file is
// loaded into the process environment, and every environment variable is
// bound under several dotted key variants so BUS_HOST reaches the key
// "bus.host".
//
// # Usage
//
//	var cfg MyConfig
//	err := config.LoadConfig("orders", &cfg)
package config

// Package connection holds the broker connection configuration that the
// bootstrap package registers with the container.
//
// A Configuration comes from code (NewConfiguration), from a connection
// string ("host=rabbit;virtualHost=orders;prefetchcount=20") through
// StringParser, or from the "bus" section of a config file through Load.
// Validate completes it before use: an AMQP URI is merged into the host
// list, host ports are filled in and the client properties reported to the
// broker are set.
package connection

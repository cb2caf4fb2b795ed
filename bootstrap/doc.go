// Package bootstrap wires a bus's default services into a di.Adapter.
//
// RegisterBus registers the connection configuration, the connection-string
// parser and the logger, lets the caller add or replace services, then
// builds the adapter:
//
//	resolver, err := bootstrap.RegisterBusWithConnectionString(
//	    digadapter.New(),
//	    "host=rabbit;virtualHost=orders",
//	    func(services di.ServiceRegister, _ di.CollectionServiceRegister) error {
//	        return di.Register[Serializer](services, NewJSONSerializer)
//	    },
//	)
//
// Services registered by the caller replace the defaults, since the last
// single-winner registration of a key wins.
package bootstrap

package ditest

import (
	"sync/atomic"
)

// Service is the service type registered by the suite.
type Service interface {
	Number() int64
}

var sequence atomic.Int64

// ServiceImpl hands out a new sequence number per instance.
type ServiceImpl struct {
	number int64
}

// NewService constructs a ServiceImpl.
func NewService() *ServiceImpl {
	return &ServiceImpl{number: sequence.Add(1)}
}

func (s *ServiceImpl) Number() int64 { return s.number }

// ServiceWithCollection depends on every collection member of Service.
type ServiceWithCollection interface {
	Services() []Service
}

type serviceWithCollection struct {
	services []Service
}

// NewServiceWithCollection receives the collection view of Service.
func NewServiceWithCollection(services []Service) ServiceWithCollection {
	return &serviceWithCollection{services: services}
}

func (s *serviceWithCollection) Services() []Service { return s.services }

// Consumer depends on the single-winner Service.
type Consumer struct {
	Service Service
}

// NewConsumer receives the single-winner Service.
func NewConsumer(s Service) *Consumer {
	return &Consumer{Service: s}
}

// Resource counts how often it was disposed.
type Resource struct {
	disposed atomic.Int32
}

// NewResource constructs a Resource.
func NewResource() *Resource { return &Resource{} }

// Dispose implements di.Disposable.
func (r *Resource) Dispose() error {
	r.disposed.Add(1)
	return nil
}

// Disposed returns the number of Dispose calls.
func (r *Resource) Disposed() int32 { return r.disposed.Load() }

// Holder depends on a Resource.
type Holder struct {
	Resource *Resource
}

// NewHolder receives the Resource it holds.
func NewHolder(r *Resource) *Holder {
	return &Holder{Resource: r}
}

// Handle is a Resource released through io.Closer.
type Handle struct {
	closed atomic.Int32
}

// NewHandle constructs a Handle.
func NewHandle() *Handle { return &Handle{} }

// Close implements io.Closer.
func (h *Handle) Close() error {
	h.closed.Add(1)
	return nil
}

// Closed returns the number of Close calls.
func (h *Handle) Closed() int32 { return h.closed.Load() }

package di

// Entry pairs a registration with its singleton cell. Adapters whose native
// container cannot cache or release instances keep one Entry per
// registration.
type Entry struct {
	reg  Registration
	cell Lazy
}

// NewEntry creates an entry for reg.
func NewEntry(reg Registration) *Entry {
	return &Entry{reg: reg}
}

// Registration returns the registration the entry produces.
func (e *Entry) Registration() Registration { return e.reg }

// Initialized reports whether a singleton instance is cached.
func (e *Entry) Initialized() bool { return e.cell.Initialized() }

// Get returns the instance for one resolve. deps returns the resolver a
// producer sees, given the tracker that owns the disposable transients it
// resolves: root while a singleton is produced, since the singleton keeps
// them, and owner for a transient. Singletons are produced once and, when
// the container constructed them, tracked on root. Transients are produced
// on every call and tracked on owner.
func (e *Entry) Get(deps func(Tracker) Resolver, root *Lifecycle, owner Tracker) (any, error) {
	if e.reg.Lifetime() == Singleton {
		instance, created, err := e.cell.Get(func() (any, error) {
			return e.reg.Produce(deps(root))
		})
		if err != nil {
			return nil, ConstructionError(e.reg.Key(), err)
		}
		if created && e.reg.Owned() {
			if err := root.Track(instance); err != nil {
				return nil, err
			}
		}
		return instance, nil
	}

	instance, err := e.reg.Produce(deps(owner))
	if err != nil {
		return nil, ConstructionError(e.reg.Key(), err)
	}
	if err := owner.Track(instance); err != nil {
		return nil, err
	}
	return instance, nil
}

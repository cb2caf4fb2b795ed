package bootstrap

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/kbukum/busdi/di"
)

// ServiceInfo is a single-winner registration in the summary.
type ServiceInfo struct {
	Service  string
	Kind     string
	Lifetime string
}

// CollectionInfo is a collection key with its members in registration order.
type CollectionInfo struct {
	Service string
	Members []ServiceInfo
}

// Summary describes what RegisterBus registered.
type Summary struct {
	name          string
	adapter       string
	buildDuration time.Duration
	services      []ServiceInfo
	collections   []CollectionInfo
}

// NewSummary creates an empty summary for the named bus.
func NewSummary(name, adapter string) *Summary {
	return &Summary{
		name:        name,
		adapter:     adapter,
		services:    make([]ServiceInfo, 0),
		collections: make([]CollectionInfo, 0),
	}
}

// SetBuildDuration records how long registration and build took.
func (s *Summary) SetBuildDuration(d time.Duration) {
	s.buildDuration = d
}

// Collect adds the registrations reported by an inspector. Services are
// sorted by name; collection members keep their order.
func (s *Summary) Collect(inspector di.Inspector) {
	index := make(map[string]int)
	for _, info := range inspector.Registrations() {
		entry := ServiceInfo{
			Service:  info.Key.String(),
			Kind:     info.Kind.String(),
			Lifetime: info.Lifetime.String(),
		}
		if !info.Collection {
			s.services = append(s.services, entry)
			continue
		}
		i, ok := index[entry.Service]
		if !ok {
			i = len(s.collections)
			index[entry.Service] = i
			s.collections = append(s.collections, CollectionInfo{Service: entry.Service})
		}
		members := s.collections[i].Members
		for len(members) <= info.Index {
			members = append(members, ServiceInfo{})
		}
		members[info.Index] = entry
		s.collections[i].Members = members
	}

	slices.SortFunc(s.services, func(a, b ServiceInfo) int { return strings.Compare(a.Service, b.Service) })
	slices.SortFunc(s.collections, func(a, b CollectionInfo) int { return strings.Compare(a.Service, b.Service) })
}

// Services returns the single-winner registrations.
func (s *Summary) Services() []ServiceInfo { return s.services }

// Collections returns the collection registrations.
func (s *Summary) Collections() []CollectionInfo { return s.collections }

// Fields returns the summary as log fields.
func (s *Summary) Fields() map[string]interface{} {
	members := 0
	for _, c := range s.collections {
		members += len(c.Members)
	}
	return map[string]interface{}{
		"bus":                s.name,
		"adapter":            s.adapter,
		"services":           len(s.services),
		"collections":        len(s.collections),
		"collection_members": members,
		"duration_ms":        s.buildDuration.Milliseconds(),
	}
}

// Display writes the summary as a tree.
func (s *Summary) Display(w io.Writer) {
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "🚌 %s on %s built in %.3fs\n\n", s.name, s.adapter, s.buildDuration.Seconds())

	fmt.Fprintf(w, "📦 Services (%d)\n", len(s.services))
	if len(s.services) == 0 {
		fmt.Fprintf(w, "   └── No services registered\n")
	}
	for i, svc := range s.services {
		fmt.Fprintf(w, "   %s %s %s [%s, %s]\n", branch(i, len(s.services)), kindIcon(svc.Kind), svc.Service, svc.Kind, svc.Lifetime)
	}

	if len(s.collections) > 0 {
		fmt.Fprintf(w, "\n📚 Collections (%d)\n", len(s.collections))
		for i, c := range s.collections {
			last := i == len(s.collections)-1
			fmt.Fprintf(w, "   %s %s (%d members)\n", branch(i, len(s.collections)), c.Service, len(c.Members))
			for j, m := range c.Members {
				indent := "│   "
				if last {
					indent = "    "
				}
				fmt.Fprintf(w, "   %s%s %s #%d [%s, %s]\n", indent, branch(j, len(c.Members)), kindIcon(m.Kind), j, m.Kind, m.Lifetime)
			}
		}
	}
	fmt.Fprintf(w, "\n")
}

func branch(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func kindIcon(kind string) string {
	switch kind {
	case "type":
		return "⚙️"
	case "factory":
		return "🏭"
	case "instance":
		return "📌"
	default:
		return "❓"
	}
}

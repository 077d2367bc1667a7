package render

import (
	"sort"
	"strings"

	"fivem/resonance/internal/scene"
)

// Filter is a set of highlighted category labels. The zero value is the empty
// filter, which highlights everything. Filters are values; Toggle returns a
// new one.
type Filter struct {
	labels map[string]struct{}
}

func NewFilter(labels ...string) Filter {
	f := Filter{}
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if f.labels == nil {
			f.labels = make(map[string]struct{})
		}
		f.labels[l] = struct{}{}
	}
	return f
}

// ParseFilter reads a comma-separated label list.
func ParseFilter(s string) Filter {
	return NewFilter(strings.Split(s, ",")...)
}

func (f Filter) Empty() bool {
	return len(f.labels) == 0
}

// Highlights reports whether nodes of category label are shown at full
// strength.
func (f Filter) Highlights(label string) bool {
	if f.Empty() {
		return true
	}
	_, ok := f.labels[strings.TrimSpace(label)]
	return ok
}

// EdgeVisible reports whether an edge between a and b is drawn: always with an
// empty filter, otherwise when either endpoint is highlighted.
func (f Filter) EdgeVisible(a, b scene.Node) bool {
	return f.Highlights(a.Category) || f.Highlights(b.Category)
}

// Toggle adds label if absent and removes it otherwise.
func (f Filter) Toggle(label string) Filter {
	out := Filter{labels: make(map[string]struct{}, len(f.labels)+1)}
	for l := range f.labels {
		out.labels[l] = struct{}{}
	}
	label = strings.TrimSpace(label)
	if _, ok := out.labels[label]; ok {
		delete(out.labels, label)
	} else if label != "" {
		out.labels[label] = struct{}{}
	}
	return out
}

// Labels returns the filter contents sorted.
func (f Filter) Labels() []string {
	out := make([]string, 0, len(f.labels))
	for l := range f.labels {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

func (f Filter) String() string {
	return strings.Join(f.Labels(), ",")
}

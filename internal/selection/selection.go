// Package selection tracks which products are picked for a mass edit.
package selection

import "sort"

// Set is a set of product keys. Membership has no effect on filtering or
// sorting. The zero value is an empty set ready for use.
type Set struct {
	keys map[string]struct{}
}

// New returns an empty set.
func New() *Set {
	return &Set{keys: make(map[string]struct{})}
}

// Toggle adds key when absent and removes it when present.
func (s *Set) Toggle(key string) {
	if s.keys == nil {
		s.keys = make(map[string]struct{})
	}
	if _, ok := s.keys[key]; ok {
		delete(s.keys, key)
		return
	}
	s.keys[key] = struct{}{}
}

// SelectAll adds every key on the current page. Keys from other pages that
// are already selected stay selected.
func (s *Set) SelectAll(pageKeys []string) {
	if s.keys == nil {
		s.keys = make(map[string]struct{})
	}
	for _, k := range pageKeys {
		s.keys[k] = struct{}{}
	}
}

// Clear removes every key.
func (s *Set) Clear() {
	s.keys = make(map[string]struct{})
}

// Has reports whether key is selected.
func (s *Set) Has(key string) bool {
	_, ok := s.keys[key]
	return ok
}

// Len is the number of selected keys.
func (s *Set) Len() int { return len(s.keys) }

// Keys returns the selected keys in sorted order.
func (s *Set) Keys() []string {
	out := make([]string, 0, len(s.keys))
	for k := range s.keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// State reports the header checkbox state for a page. all is true when the
// page has rows and every one of them is selected. some is the indeterminate
// state: something is selected but not the whole page.
func (s *Set) State(pageKeys []string) (all, some bool) {
	all = len(pageKeys) > 0
	for _, k := range pageKeys {
		if !s.Has(k) {
			all = false
			break
		}
	}
	some = s.Len() > 0 && !all
	return all, some
}

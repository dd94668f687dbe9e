package client

import (
	"strings"
	"sync"

	"github.com/samber/lo"
)

// DocumentSelection is the set of uploaded filenames scoping AI requests.
// Names are kept in the order they were first selected. Nothing checks that
// they still exist on the server.
type DocumentSelection struct {
	mu    sync.RWMutex
	names []string
}

func NewDocumentSelection() *DocumentSelection {
	return &DocumentSelection{}
}

// Set replaces the selection.
func (d *DocumentSelection) Set(names []string) {
	clean := lo.Uniq(lo.FilterMap(names, func(n string, _ int) (string, bool) {
		n = strings.TrimSpace(n)
		return n, n != ""
	}))
	d.mu.Lock()
	d.names = clean
	d.mu.Unlock()
}

// Toggle adds name if absent and removes it otherwise. It reports whether
// the name is selected afterwards.
func (d *DocumentSelection) Toggle(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if lo.Contains(d.names, name) {
		d.names = lo.Without(d.names, name)
		return false
	}
	d.names = append(d.names, name)
	return true
}

func (d *DocumentSelection) Clear() {
	d.mu.Lock()
	d.names = nil
	d.mu.Unlock()
}

func (d *DocumentSelection) Contains(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return lo.Contains(d.names, name)
}

// Filenames returns a copy of the selection; never nil.
func (d *DocumentSelection) Filenames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string{}, d.names...)
}

package instrument

import (
	"sort"
	"sync"
)

// Registry maps instrument IDs to adapters by capability.
type Registry struct {
	mu         sync.RWMutex
	percussive map[string]Percussive
	melodic    map[string]Melodic
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		percussive: make(map[string]Percussive),
		melodic:    make(map[string]Melodic),
	}
}

// NewDefaultRegistry registers every built-in adapter.
func NewDefaultRegistry(sender Sender, opts ...Option) *Registry {
	r := NewRegistry()
	r.RegisterPercussive(NewTR808(sender, opts...))
	r.RegisterPercussive(NewTR909(sender, opts...))
	r.RegisterMelodic(NewTB303(sender, opts...))
	r.RegisterMelodic(NewTD3(sender, opts...))
	r.RegisterMelodic(NewARP2600(sender, opts...))
	r.RegisterMelodic(NewJuno106(sender, opts...))
	r.RegisterMelodic(NewMinimoog(sender, opts...))
	return r
}

// RegisterPercussive adds or replaces a drum machine.
func (r *Registry) RegisterPercussive(p Percussive) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.percussive[p.ID()] = p
}

// RegisterMelodic adds or replaces a synthesizer.
func (r *Registry) RegisterMelodic(m Melodic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.melodic[m.ID()] = m
}

// Percussive looks up a drum machine.
func (r *Registry) Percussive(id string) (Percussive, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.percussive[id]
	return p, ok
}

// Melodic looks up a synthesizer.
func (r *Registry) Melodic(id string) (Melodic, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.melodic[id]
	return m, ok
}

// Lookup returns any instrument with the given ID.
func (r *Registry) Lookup(id string) (Instrument, bool) {
	if p, ok := r.Percussive(id); ok {
		return p, true
	}
	if m, ok := r.Melodic(id); ok {
		return m, true
	}
	return nil, false
}

// PercussiveIDs returns the registered drum machine IDs, sorted.
func (r *Registry) PercussiveIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.percussive)
}

// MelodicIDs returns the registered synthesizer IDs, sorted.
func (r *Registry) MelodicIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.melodic)
}

// StopAll calls StopAll on every registered adapter.
func (r *Registry) StopAll() {
	r.mu.RLock()
	drums := make([]Percussive, 0, len(r.percussive))
	for _, p := range r.percussive {
		drums = append(drums, p)
	}
	synths := make([]Melodic, 0, len(r.melodic))
	for _, m := range r.melodic {
		synths = append(synths, m)
	}
	r.mu.RUnlock()

	for _, p := range drums {
		p.StopAll()
	}
	for _, m := range synths {
		m.StopAll()
	}
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package instrument

import (
	"math"
	"sort"
	"sync"
)

// Canonical bounds shared by every instrument.
var (
	Velocity  = Param{Name: "velocity", Min: 0, Max: 1, Default: 1}
	Cutoff    = Param{Name: "cutoff", Min: 20, Max: 10000, Default: 1000}
	Resonance = Param{Name: "resonance", Min: 0, Max: 30, Default: 1}
	Attack    = Param{Name: "attack", Min: 0, Max: 5, Default: 0.01}
	Decay     = Param{Name: "decay", Min: 0, Max: 5, Default: 0.3}
	Sustain   = Param{Name: "sustain", Min: 0, Max: 1, Default: 0.7}
	Release   = Param{Name: "release", Min: 0, Max: 5, Default: 0.3}
)

// Param describes one numeric instrument parameter.
type Param struct {
	Name    string
	Min     float64
	Max     float64
	Default float64
}

// WithDefault returns a copy of p with a different default.
func (p Param) WithDefault(v float64) Param {
	p.Default = v
	return p
}

// Named returns a copy of p under a different name.
func (p Param) Named(name string) Param {
	p.Name = name
	return p
}

// Clamp limits v to [Min, Max]. NaN maps to Default.
func (p Param) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return p.Default
	}
	return math.Max(p.Min, math.Min(p.Max, v))
}

// ParamSet holds the current values of an instrument's parameters.
type ParamSet struct {
	mu     sync.RWMutex
	defs   map[string]Param
	values map[string]float64
}

// NewParamSet creates a set initialised to each parameter's default.
func NewParamSet(params ...Param) *ParamSet {
	ps := &ParamSet{
		defs:   make(map[string]Param, len(params)),
		values: make(map[string]float64, len(params)),
	}
	for _, p := range params {
		ps.defs[p.Name] = p
		ps.values[p.Name] = p.Clamp(p.Default)
	}
	return ps
}

// Set clamps v into range and stores it, returning the stored value.
// Unknown names are ignored and report false.
func (ps *ParamSet) Set(name string, v float64) (float64, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	def, ok := ps.defs[name]
	if !ok {
		return 0, false
	}
	stored := def.Clamp(v)
	ps.values[name] = stored
	return stored, true
}

// Get returns the current value, or 0 for unknown names.
func (ps *ParamSet) Get(name string) float64 {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.values[name]
}

// Reset restores every parameter to its default.
func (ps *ParamSet) Reset() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	for name, def := range ps.defs {
		ps.values[name] = def.Clamp(def.Default)
	}
}

// Defs returns the parameter descriptors sorted by name.
func (ps *ParamSet) Defs() []Param {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make([]Param, 0, len(ps.defs))
	for _, d := range ps.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Snapshot copies the current values into a command parameter map.
func (ps *ParamSet) Snapshot() map[string]any {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make(map[string]any, len(ps.values)+4)
	for name, v := range ps.values {
		out[name] = v
	}
	return out
}

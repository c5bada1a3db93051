// Package flags gates optional session behaviour behind config switches.
// A Registry is read-only once built; unknown names read as off.
package flags

import (
	"maps"
	"slices"

	"github.com/haosfm/haos/internal/log"
)

const (
	// FlagWaveformStream asks the engine for periodic waveform and level
	// events once it is ready.
	FlagWaveformStream = "waveform-stream"

	// FlagPatternWatch reloads the pattern library when its files change.
	FlagPatternWatch = "pattern-watch"

	// FlagVoiceTracking registers melodic triggers with the voice tracker.
	FlagVoiceTracking = "voice-tracking"
)

// Known lists every flag haos reads.
var Known = []string{FlagPatternWatch, FlagVoiceTracking, FlagWaveformStream}

// Registry is the flag set of one session. The zero and nil values have
// every flag off.
type Registry struct {
	flags map[string]bool
}

// New copies flags into a Registry. Names haos never reads are kept but
// logged, since they are usually typos in the config file.
func New(flags map[string]bool) *Registry {
	r := &Registry{flags: maps.Clone(flags)}
	for name := range r.flags {
		if !slices.Contains(Known, name) {
			log.Warn(log.CatConfig, "unknown feature flag in config", "flag", name, "known", Known)
		}
	}
	log.Debug(log.CatConfig, "feature flags", "flags", r.All())
	return r
}

// Enabled reports whether name is switched on.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	return r.flags[name]
}

// All returns a copy of the flags, never nil.
func (r *Registry) All() map[string]bool {
	out := make(map[string]bool)
	if r != nil {
		maps.Copy(out, r.flags)
	}
	return out
}

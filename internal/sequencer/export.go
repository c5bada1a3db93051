package sequencer

import (
	"encoding/json"
	"fmt"
)

// DocumentVersion is the current export format version.
const DocumentVersion = 1

// Document is the JSON form of every bank plus transport settings.
type Document struct {
	Version int                `json:"version"`
	BPM     float64            `json:"bpm"`
	Swing   float64            `json:"swing"`
	Steps   int                `json:"steps"`
	Bank    string             `json:"bank"`
	Chain   []string           `json:"chain,omitempty"`
	Banks   map[string]Pattern `json:"banks"`
}

// Document snapshots the scheduler.
func (s *Scheduler) Document() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	banks := make(map[string]Pattern, len(s.banks))
	for name, p := range s.banks {
		banks[name] = p.Clone()
	}
	var chain []string
	if len(s.chain) > 0 {
		chain = append(chain, s.chain...)
	}
	return Document{
		Version: DocumentVersion,
		BPM:     s.bpm,
		Swing:   s.swing,
		Steps:   s.steps,
		Bank:    s.bank,
		Chain:   chain,
		Banks:   banks,
	}
}

// Export encodes every bank as indented JSON.
func (s *Scheduler) Export() ([]byte, error) {
	return json.MarshalIndent(s.Document(), "", "  ")
}

// Import replaces banks and transport settings from JSON produced by
// Export. Unknown banks and tracks are ignored, tracks are fitted to the
// pattern length, and tempo and swing are clamped. Banks absent from the
// document are left untouched.
func (s *Scheduler) Import(data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decoding pattern document: %w", err)
	}
	if doc.Version > DocumentVersion {
		return fmt.Errorf("pattern document version %d is newer than supported %d", doc.Version, DocumentVersion)
	}
	s.ApplyDocument(doc)
	return nil
}

// ApplyDocument installs doc. See Import.
func (s *Scheduler) ApplyDocument(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, p := range doc.Banks {
		if ValidBank(name) {
			s.banks[name] = p.normalized(s.steps)
		}
	}
	if doc.BPM > 0 {
		s.bpm = ClampBPM(doc.BPM)
	}
	s.swing = clampSwing(doc.Swing)
	if ValidBank(doc.Bank) {
		s.bank = doc.Bank
	}
	s.chain = nil
	for _, b := range doc.Chain {
		if ValidBank(b) {
			s.chain = append(s.chain, b)
		}
	}
}

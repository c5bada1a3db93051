package bridge

import "time"

// InitAudio asks the engine to create its audio context. The engine answers
// with a "ready" event.
func (b *Bridge) InitAudio() {
	b.Send(CmdInitAudio, nil)
}

// SetMasterVolume sets the engine output gain (0-1).
func (b *Bridge) SetMasterVolume(volume float64) {
	b.Send(CmdSetMasterVolume, map[string]any{"volume": volume})
}

// StopAllNotes asks the engine to silence every sounding voice.
func (b *Bridge) StopAllNotes() {
	b.Send(CmdStopAllNotes, nil)
}

// SetFilter configures the global filter stage.
func (b *Bridge) SetFilter(filterType string, frequency, q float64) {
	b.Send(CmdSetFilter, map[string]any{"type": filterType, "frequency": frequency, "Q": q})
}

// SetDistortion sets the distortion amount.
func (b *Bridge) SetDistortion(amount float64) {
	b.Send(CmdSetDistortion, map[string]any{"amount": amount})
}

// SetReverb sets the reverb amount.
func (b *Bridge) SetReverb(amount float64) {
	b.Send(CmdSetReverb, map[string]any{"amount": amount})
}

// SetDelay configures the delay line.
func (b *Bridge) SetDelay(timeSec, feedback, mix float64) {
	b.Send(CmdSetDelay, map[string]any{"time": timeSec, "feedback": feedback, "mix": mix})
}

// SetCompression configures the output compressor.
func (b *Bridge) SetCompression(threshold, ratio, attack, release float64) {
	b.Send(CmdSetCompression, map[string]any{
		"threshold": threshold,
		"ratio":     ratio,
		"attack":    attack,
		"release":   release,
	})
}

// UpdateSynthParam sets one named engine-side synth parameter.
func (b *Bridge) UpdateSynthParam(param string, value float64) {
	b.Send(CmdUpdateSynthParam, map[string]any{"param": param, "value": value})
}

// SetADSR sets the default amplitude envelope.
func (b *Bridge) SetADSR(attack, decay, sustain, release float64) {
	b.Send(CmdSetADSR, map[string]any{
		"attack":  attack,
		"decay":   decay,
		"sustain": sustain,
		"release": release,
	})
}

// SetWaveform selects the default oscillator waveform.
func (b *Bridge) SetWaveform(waveform string) {
	b.Send(CmdSetWaveform, map[string]any{"waveform": waveform})
}

// GetWaveform requests one "waveform" event.
func (b *Bridge) GetWaveform() {
	b.Send(CmdGetWaveform, nil)
}

// GetAudioLevel requests one "audioLevel" event.
func (b *Bridge) GetAudioLevel() {
	b.Send(CmdGetAudioLevel, nil)
}

// StartWaveformUpdates asks the engine to stream waveform and level events.
func (b *Bridge) StartWaveformUpdates(interval time.Duration) {
	b.Send(CmdStartWaveformUpdates, map[string]any{"interval": float64(interval.Milliseconds())})
}

// StopWaveformUpdates stops the stream started by StartWaveformUpdates.
func (b *Bridge) StopWaveformUpdates() {
	b.Send(CmdStopWaveformUpdates, nil)
}

// SetBPM informs the engine of the host tempo.
func (b *Bridge) SetBPM(bpm float64) {
	b.Send(CmdSetBPM, map[string]any{"bpm": bpm})
}

// StartSequencer and StopSequencer mirror the host transport state to the engine.
func (b *Bridge) StartSequencer() {
	b.Send(CmdStartSequencer, nil)
}

func (b *Bridge) StopSequencer() {
	b.Send(CmdStopSequencer, nil)
}

// SetPattern sends a pattern snapshot to the engine.
func (b *Bridge) SetPattern(pattern map[string]any) {
	b.Send(CmdSetPattern, map[string]any{"pattern": pattern})
}

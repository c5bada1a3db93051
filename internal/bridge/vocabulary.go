package bridge

// Command names understood by the engine.
const (
	CmdInitAudio            = "initAudio"
	CmdSetMasterVolume      = "setMasterVolume"
	CmdPlayKick             = "playKick"
	CmdPlaySnare            = "playSnare"
	CmdPlayHiHat            = "playHiHat"
	CmdPlayClap             = "playClap"
	CmdPlayBass             = "playBass"
	CmdPlaySynthNote        = "playSynthNote"
	CmdPlayTB303            = "playTB303"
	CmdPlayARP2600          = "playARP2600"
	CmdPlayJuno106          = "playJuno106"
	CmdPlayMinimoog         = "playMinimoog"
	CmdPlayBassNote         = "playBassNote"
	CmdStopAllNotes         = "stopAllNotes"
	CmdSetFilter            = "setFilter"
	CmdSetDistortion        = "setDistortion"
	CmdSetReverb            = "setReverb"
	CmdSetDelay             = "setDelay"
	CmdSetCompression       = "setCompression"
	CmdUpdateSynthParam     = "updateSynthParam"
	CmdSetADSR              = "setADSR"
	CmdSetWaveform          = "setWaveform"
	CmdGetWaveform          = "getWaveform"
	CmdGetAudioLevel        = "getAudioLevel"
	CmdStartWaveformUpdates = "startWaveformUpdates"
	CmdStopWaveformUpdates  = "stopWaveformUpdates"
	CmdSetBPM               = "setBPM"
	CmdStartSequencer       = "startSequencer"
	CmdStopSequencer        = "stopSequencer"
	CmdSetPattern           = "setPattern"
)

// Event types emitted by the engine.
const (
	EventReady       = "ready"
	EventWaveform    = "waveform"
	EventAudioLevel  = "audioLevel"
	EventSoundPlayed = "soundPlayed"
)

// IsTrigger reports whether name is a sound-producing command.
func IsTrigger(name string) bool {
	switch name {
	case CmdPlayKick, CmdPlaySnare, CmdPlayHiHat, CmdPlayClap,
		CmdPlayBass, CmdPlaySynthNote, CmdPlayTB303, CmdPlayARP2600,
		CmdPlayJuno106, CmdPlayMinimoog, CmdPlayBassNote:
		return true
	}
	return false
}

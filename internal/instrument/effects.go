package instrument

// Filter types accepted by the engine.
var filterTypes = map[string]bool{
	"lowpass": true, "highpass": true, "bandpass": true, "notch": true,
}

// Effects is the master effect chain applied at session start.
type Effects struct {
	FilterType      string
	FilterFrequency float64
	FilterQ         float64
	Distortion      float64
	Reverb          float64
	DelayTime       float64
	DelayFeedback   float64
	DelayMix        float64
	Threshold       float64
	Ratio           float64
	CompAttack      float64
	CompRelease     float64
}

// DefaultEffects returns a neutral chain.
func DefaultEffects() Effects {
	return Effects{
		FilterType:      "lowpass",
		FilterFrequency: 10000,
		FilterQ:         1,
		DelayTime:       0.25,
		DelayFeedback:   0.3,
		Threshold:       -24,
		Ratio:           4,
		CompAttack:      0.003,
		CompRelease:     0.25,
	}
}

// EffectsSender is the part of the bridge that controls the effect chain.
type EffectsSender interface {
	SetFilter(filterType string, frequency, q float64)
	SetDistortion(amount float64)
	SetReverb(amount float64)
	SetDelay(timeSec, feedback, mix float64)
	SetCompression(threshold, ratio, attack, release float64)
}

// Clamped returns e with every value forced into range. An unknown filter
// type falls back to lowpass.
func (e Effects) Clamped() Effects {
	unit := Param{Min: 0, Max: 1}
	if !filterTypes[e.FilterType] {
		e.FilterType = "lowpass"
	}
	e.FilterFrequency = Cutoff.Clamp(e.FilterFrequency)
	e.FilterQ = Resonance.Clamp(e.FilterQ)
	e.Distortion = unit.Clamp(e.Distortion)
	e.Reverb = unit.Clamp(e.Reverb)
	e.DelayTime = Param{Min: 0, Max: 2}.Clamp(e.DelayTime)
	e.DelayFeedback = Param{Min: 0, Max: 0.95}.Clamp(e.DelayFeedback)
	e.DelayMix = unit.Clamp(e.DelayMix)
	e.Threshold = Param{Min: -100, Max: 0}.Clamp(e.Threshold)
	e.Ratio = Param{Min: 1, Max: 20}.Clamp(e.Ratio)
	e.CompAttack = Attack.Clamp(e.CompAttack)
	e.CompRelease = Release.Clamp(e.CompRelease)
	return e
}

// Apply clamps e and sends the whole chain.
func (e Effects) Apply(fx EffectsSender) {
	e = e.Clamped()
	fx.SetFilter(e.FilterType, e.FilterFrequency, e.FilterQ)
	fx.SetDistortion(e.Distortion)
	fx.SetReverb(e.Reverb)
	fx.SetDelay(e.DelayTime, e.DelayFeedback, e.DelayMix)
	fx.SetCompression(e.Threshold, e.Ratio, e.CompAttack, e.CompRelease)
}


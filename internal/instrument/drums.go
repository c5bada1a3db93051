package instrument

import (
	"context"

	"github.com/haosfm/haos/internal/bridge"
)

// Drum machine IDs.
const (
	IDTR808 = "808"
	IDTR909 = "909"
)

// Drum parameters.
var (
	KickPitch  = Param{Name: "kickPitch", Min: 30, Max: 300, Default: 150}
	KickDecay  = Decay.Named("kickDecay")
	SnareTone  = Param{Name: "snareTone", Min: 0, Max: 1, Default: 0.2}
	SnareNoise = Param{Name: "snareNoise", Min: 0, Max: 1, Default: 0.7}
	HiHatDecay = Decay.Named("hihatDecay").WithDefault(0.05)
)

// voicing scales trigger velocities before clamping.
type voicing struct {
	kick, snare, hihat, clap float64
}

// DrumMachine is a Percussive adapter. TR-808 and TR-909 differ in their
// parameter defaults and velocity voicing.
type DrumMachine struct {
	core
	voicing voicing
}

var _ Percussive = (*DrumMachine)(nil)

// NewTR808 creates the TR-808 adapter.
func NewTR808(sender Sender, opts ...Option) *DrumMachine {
	params := NewParamSet(
		KickPitch,
		KickDecay,
		SnareTone,
		SnareNoise,
		HiHatDecay,
	)
	return &DrumMachine{
		core:    newCore(IDTR808, sender, params, opts),
		voicing: voicing{kick: 1, snare: 1, hihat: 1, clap: 1},
	}
}

// NewTR909 creates the TR-909 adapter: a harder kick, a snappier snare
// and tighter hats, each pushed slightly louder.
func NewTR909(sender Sender, opts ...Option) *DrumMachine {
	params := NewParamSet(
		KickPitch.WithDefault(80),
		KickDecay,
		SnareTone.WithDefault(0.35),
		SnareNoise.WithDefault(0.85),
		HiHatDecay.WithDefault(0.03),
	)
	return &DrumMachine{
		core:    newCore(IDTR909, sender, params, opts),
		voicing: voicing{kick: 1.1, snare: 1.15, hihat: 1.2, clap: 1},
	}
}

// PlayKick triggers the bass drum.
func (d *DrumMachine) PlayKick(ctx context.Context, velocity float64) {
	v := Velocity.Clamp(velocity * d.voicing.kick)
	d.trigger(ctx, bridge.CmdPlayKick, v, map[string]any{
		"pitch":    d.params.Get(KickPitch.Name),
		"decay":    d.params.Get(KickDecay.Name),
		"velocity": v,
	})
}

// PlaySnare triggers the snare.
func (d *DrumMachine) PlaySnare(ctx context.Context, velocity float64) {
	v := Velocity.Clamp(velocity * d.voicing.snare)
	d.trigger(ctx, bridge.CmdPlaySnare, v, map[string]any{
		"tone":     d.params.Get(SnareTone.Name),
		"noise":    d.params.Get(SnareNoise.Name),
		"velocity": v,
	})
}

// PlayHiHat triggers a closed or open hat.
func (d *DrumMachine) PlayHiHat(ctx context.Context, velocity float64, open bool) {
	v := Velocity.Clamp(velocity * d.voicing.hihat)
	decay := d.params.Get(HiHatDecay.Name)
	if open {
		decay = HiHatDecay.Clamp(decay * 6)
	}
	d.trigger(ctx, bridge.CmdPlayHiHat, v, map[string]any{
		"decay":    decay,
		"open":     open,
		"velocity": v,
	})
}

// PlayClap triggers the hand clap.
func (d *DrumMachine) PlayClap(ctx context.Context, velocity float64) {
	v := Velocity.Clamp(velocity * d.voicing.clap)
	d.trigger(ctx, bridge.CmdPlayClap, v, map[string]any{"velocity": v})
}

// StopAll silences this machine.
func (d *DrumMachine) StopAll() {
	d.stopAll()
}

package instrument

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/haosfm/haos/internal/bridge"
)

type sent struct {
	name   string
	params map[string]any
}

// fakeSender records commands and reports a fixed readiness.
type fakeSender struct {
	mu    sync.Mutex
	ready bool
	sent  []sent
}

func (f *fakeSender) Send(name string, params map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{name: name, params: params})
}

func (f *fakeSender) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ready
}

func (f *fakeSender) commands() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.sent...)
}

func (f *fakeSender) last(t *testing.T) sent {
	t.Helper()
	cmds := f.commands()
	require.NotEmpty(t, cmds)
	return cmds[len(cmds)-1]
}

type pulse struct {
	id        string
	intensity float64
}

func recordingFeedback() (*[]pulse, Option) {
	var mu sync.Mutex
	var pulses []pulse
	return &pulses, WithFeedback(FeedbackFunc(func(id string, intensity float64) {
		mu.Lock()
		defer mu.Unlock()
		pulses = append(pulses, pulse{id, intensity})
	}))
}

type fakeVoices struct {
	tracked []string
	dur     []time.Duration
}

func (v *fakeVoices) Track(instrumentID, noteID string, d time.Duration) string {
	v.tracked = append(v.tracked, instrumentID+":"+noteID)
	v.dur = append(v.dur, d)
	return "v"
}

func TestParam_Clamp(t *testing.T) {
	tests := []struct {
		name string
		p    Param
		in   float64
		want float64
	}{
		{"velocity above", Velocity, 1.5, 1},
		{"velocity below", Velocity, -0.2, 0},
		{"velocity inside", Velocity, 0.4, 0.4},
		{"cutoff low", Cutoff, 5, 20},
		{"cutoff high", Cutoff, 20000, 10000},
		{"resonance high", Resonance, 31, 30},
		{"decay high", Decay, 9, 5},
		{"release low", Release, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.InDelta(t, tt.want, tt.p.Clamp(tt.in), 1e-12)
		})
	}
}

func TestParamSet_SetClampsAndIgnoresUnknown(t *testing.T) {
	ps := NewParamSet(Cutoff, Resonance)

	stored, ok := ps.Set("cutoff", 50000)
	require.True(t, ok)
	require.Equal(t, 10000.0, stored)
	require.Equal(t, 10000.0, ps.Get("cutoff"))

	_, ok = ps.Set("wobble", 1)
	require.False(t, ok)
	require.NotContains(t, ps.Snapshot(), "wobble")

	ps.Reset()
	require.Equal(t, Cutoff.Default, ps.Get("cutoff"))
}

func TestParamSet_ClampProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		lo := rapid.Float64Range(-1000, 1000).Draw(t, "lo")
		span := rapid.Float64Range(0, 1000).Draw(t, "span")
		p := Param{Name: "x", Min: lo, Max: lo + span, Default: lo}
		ps := NewParamSet(p)

		v := rapid.Float64Range(-1e6, 1e6).Draw(t, "v")
		stored, _ := ps.Set("x", v)
		if stored < p.Min || stored > p.Max {
			t.Fatalf("stored %v outside [%v,%v]", stored, p.Min, p.Max)
		}
		if v >= p.Min && v <= p.Max && stored != v {
			t.Fatalf("in-range value %v changed to %v", v, stored)
		}
	})
}

func TestDrumMachine_SendsWhenReady(t *testing.T) {
	s := &fakeSender{ready: true}
	d := NewTR808(s)
	ctx := context.Background()

	d.PlayKick(ctx, 0.9)
	d.PlaySnare(ctx, 0.5)
	d.PlayHiHat(ctx, 0.4, false)
	d.PlayClap(ctx, 0.3)

	cmds := s.commands()
	require.Len(t, cmds, 4)
	assert.Equal(t, bridge.CmdPlayKick, cmds[0].name)
	assert.Equal(t, 0.9, cmds[0].params["velocity"])
	assert.Equal(t, 150.0, cmds[0].params["pitch"])
	assert.Equal(t, 0.3, cmds[0].params["decay"])
	assert.Equal(t, bridge.CmdPlaySnare, cmds[1].name)
	assert.Equal(t, 0.2, cmds[1].params["tone"])
	assert.Equal(t, bridge.CmdPlayHiHat, cmds[2].name)
	assert.Equal(t, 0.05, cmds[2].params["decay"])
	assert.Equal(t, false, cmds[2].params["open"])
	assert.Equal(t, bridge.CmdPlayClap, cmds[3].name)
}

func TestTR909_Voicing(t *testing.T) {
	s := &fakeSender{ready: true}
	d := NewTR909(s)
	ctx := context.Background()

	d.PlayKick(ctx, 0.5)
	d.PlaySnare(ctx, 0.5)
	d.PlayHiHat(ctx, 0.5, false)
	d.PlayClap(ctx, 0.5)
	d.PlayKick(ctx, 1.0)

	cmds := s.commands()
	require.Len(t, cmds, 5)
	assert.InDelta(t, 0.55, cmds[0].params["velocity"], 1e-9)
	assert.InDelta(t, 0.575, cmds[1].params["velocity"], 1e-9)
	assert.InDelta(t, 0.6, cmds[2].params["velocity"], 1e-9)
	assert.InDelta(t, 0.5, cmds[3].params["velocity"], 1e-9)
	assert.InDelta(t, 1.0, cmds[4].params["velocity"], 1e-9, "clamped after scaling")
}

func TestDrumMachine_OpenHatLengthensDecay(t *testing.T) {
	s := &fakeSender{ready: true}
	d := NewTR808(s)
	d.PlayHiHat(context.Background(), 1, true)
	assert.InDelta(t, 0.3, s.last(t).params["decay"], 1e-9)
	assert.Equal(t, true, s.last(t).params["open"])
}

func TestAdapters_DegradedModeUsesFeedback(t *testing.T) {
	s := &fakeSender{ready: false}
	pulses, fb := recordingFeedback()
	voices := &fakeVoices{}

	drums := NewTR808(s, fb)
	synth := NewJuno106(s, fb, WithVoices(voices))

	require.NotPanics(t, func() {
		drums.PlayKick(context.Background(), 0.8)
		synth.PlayNote(context.Background(), "C4", NoteOptions{Velocity: 0.6})
	})

	require.Empty(t, s.commands())
	require.Equal(t, []pulse{{IDTR808, 0.8}, {IDJuno106, 0.6}}, *pulses)
	require.Empty(t, voices.tracked, "degraded triggers are not voices")
}

func TestSynth_PlayNoteSendsSnapshot(t *testing.T) {
	s := &fakeSender{ready: true}
	voices := &fakeVoices{}
	m := NewMinimoog(s, WithVoices(voices))

	m.Set("cutoff", 99999)
	m.PlayNote(context.Background(), "A4", NoteOptions{Velocity: 2, Duration: 200 * time.Millisecond})

	cmd := s.last(t)
	require.Equal(t, bridge.CmdPlayMinimoog, cmd.name)
	assert.InDelta(t, 440.0, cmd.params["frequency"], 1e-9)
	assert.InDelta(t, 0.2, cmd.params["duration"], 1e-9)
	assert.Equal(t, 1.0, cmd.params["velocity"])
	assert.Equal(t, 10000.0, cmd.params["cutoff"])
	for _, name := range []string{"osc1Level", "osc2Level", "osc3Level", "resonance", "attack", "decay", "sustain", "release"} {
		assert.Contains(t, cmd.params, name)
	}

	require.Equal(t, []string{"minimoog:A4"}, voices.tracked)
	require.Equal(t, []time.Duration{200 * time.Millisecond}, voices.dur)
}

func TestSynth_DefaultDurationAndFallbackPitch(t *testing.T) {
	s := &fakeSender{ready: true}
	a := NewARP2600(s)
	a.PlayNote(context.Background(), "??", NoteOptions{Velocity: 0.5})

	cmd := s.last(t)
	require.Equal(t, bridge.CmdPlayARP2600, cmd.name)
	assert.Equal(t, 440.0, cmd.params["frequency"])
	assert.InDelta(t, DefaultNoteDuration.Seconds(), cmd.params["duration"], 1e-9)
}

func TestJuno_SendsChorus(t *testing.T) {
	s := &fakeSender{ready: true}
	j := NewJuno106(s)
	j.Set("chorusDepth", 0.25)
	j.PlayNote(context.Background(), 60, NoteOptions{Velocity: 1})
	assert.Equal(t, 0.25, s.last(t).params["chorus"])
}

func TestAcid_AccentSlideAndWaveform(t *testing.T) {
	s := &fakeSender{ready: true}
	tb := NewTB303(s)
	ctx := context.Background()

	require.False(t, tb.SetWaveform("triangle"))
	require.Equal(t, WaveSawtooth, tb.Waveform())
	require.True(t, tb.SetWaveform(WaveSquare))

	tb.PlayNote(ctx, "A1", NoteOptions{Velocity: 1})
	first := s.last(t)
	assert.Equal(t, bridge.CmdPlayTB303, first.name)
	assert.Equal(t, false, first.params["accent"])
	assert.Equal(t, 1.5, first.params["accentAmount"])
	assert.Equal(t, WaveSquare, first.params["waveform"])
	assert.NotContains(t, first.params, "slideFrom")

	tb.PlayNote(ctx, "A2", NoteOptions{Velocity: 1, Accent: true, Slide: true})
	second := s.last(t)
	assert.Equal(t, true, second.params["accent"])
	assert.Equal(t, true, second.params["slide"])
	assert.InDelta(t, 55.0, second.params["slideFrom"], 1e-9)

	tb.StopAll()
	tb.PlayNote(ctx, "A2", NoteOptions{Velocity: 1, Slide: true})
	assert.NotContains(t, s.last(t).params, "slideFrom")
}

func TestTD3_Defaults(t *testing.T) {
	td := NewTD3(&fakeSender{})
	assert.Equal(t, 300.0, td.Get("cutoff"))
	assert.Equal(t, 18.0, td.Get("resonance"))
	assert.Equal(t, 4500.0, td.Get("envMod"))
	assert.Equal(t, 6000.0, td.Set("envMod", 9000))

	tb := NewTB303(&fakeSender{})
	assert.Equal(t, 5000.0, tb.Set("envMod", 9000))
	assert.Equal(t, 3.0, tb.Set("accent", 7))
}

func TestStopAll(t *testing.T) {
	s := &fakeSender{ready: true}
	NewTR909(s).StopAll()
	cmd := s.last(t)
	require.Equal(t, bridge.CmdStopAllNotes, cmd.name)
	require.Equal(t, IDTR909, cmd.params["instrument"])

	idle := &fakeSender{}
	NewTR909(idle).StopAll()
	require.Empty(t, idle.commands())
}

func TestResumeGate(t *testing.T) {
	g := NewResumeGate()
	require.False(t, g.IsOpen())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, g.Resume(ctx), context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() { done <- g.Resume(context.Background()) }()
	g.Open()
	g.Open()
	require.NoError(t, <-done)
	require.True(t, g.IsOpen())
}

func TestTrigger_AwaitsResume(t *testing.T) {
	s := &fakeSender{ready: true}
	gate := NewResumeGate()
	pulses, fb := recordingFeedback()
	d := NewTR808(s, WithResumer(gate), fb)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.PlayKick(ctx, 1)
	require.Empty(t, s.commands())
	require.Len(t, *pulses, 1)

	played := make(chan struct{})
	go func() {
		d.PlayKick(context.Background(), 1)
		close(played)
	}()

	select {
	case <-played:
		t.Fatal("trigger did not wait for resume")
	case <-time.After(20 * time.Millisecond):
	}
	gate.Open()
	<-played
	require.Len(t, s.commands(), 1)
}

func TestTrigger_NotReadySkipsResumeWait(t *testing.T) {
	s := &fakeSender{ready: false}
	pulses, fb := recordingFeedback()
	d := NewTR808(s, WithResumer(NewResumeGate()), fb)

	played := make(chan struct{})
	go func() {
		d.PlayKick(context.Background(), 0.7)
		close(played)
	}()

	select {
	case <-played:
	case <-time.After(time.Second):
		t.Fatal("degraded trigger blocked on a closed resume gate")
	}
	require.Empty(t, s.commands())
	require.Equal(t, []pulse{{IDTR808, 0.7}}, *pulses)
}

func TestDrumMachine_PerVoiceParams(t *testing.T) {
	s := &fakeSender{ready: true}
	d := NewTR909(s)
	ctx := context.Background()

	d.PlayKick(ctx, 1)
	d.PlaySnare(ctx, 1)
	d.PlayHiHat(ctx, 1, true)
	d.PlayClap(ctx, 1)

	keys := func(m map[string]any) []string {
		out := make([]string, 0, len(m))
		for k := range m {
			out = append(out, k)
		}
		return out
	}
	cmds := s.commands()
	require.Len(t, cmds, 4)
	assert.ElementsMatch(t, []string{"pitch", "decay", "velocity"}, keys(cmds[0].params))
	assert.ElementsMatch(t, []string{"tone", "noise", "velocity"}, keys(cmds[1].params))
	assert.ElementsMatch(t, []string{"decay", "open", "velocity"}, keys(cmds[2].params))
	assert.ElementsMatch(t, []string{"velocity"}, keys(cmds[3].params))
}

func TestRegistry(t *testing.T) {
	r := NewDefaultRegistry(&fakeSender{})

	require.Equal(t, []string{IDTR808, IDTR909}, r.PercussiveIDs())
	require.Equal(t, []string{IDARP2600, IDJuno106, IDMinimoog, IDTB303, IDTD3}, r.MelodicIDs())

	_, ok := r.Percussive(IDTB303)
	require.False(t, ok)
	m, ok := r.Melodic(IDTB303)
	require.True(t, ok)
	require.Equal(t, IDTB303, m.ID())

	inst, ok := r.Lookup(IDTR909)
	require.True(t, ok)
	require.NotEmpty(t, inst.Params())

	_, ok = r.Lookup("moog-one")
	require.False(t, ok)
}

func TestRegistry_StopAll(t *testing.T) {
	s := &fakeSender{ready: true}
	r := NewDefaultRegistry(s)
	r.StopAll()
	require.Len(t, s.commands(), 7)
}

type fxRecorder struct {
	calls []string
	args  [][]any
}

func (f *fxRecorder) SetFilter(ft string, freq, q float64) {
	f.calls = append(f.calls, "filter")
	f.args = append(f.args, []any{ft, freq, q})
}
func (f *fxRecorder) SetDistortion(a float64) {
	f.calls = append(f.calls, "distortion")
	f.args = append(f.args, []any{a})
}
func (f *fxRecorder) SetReverb(a float64) {
	f.calls = append(f.calls, "reverb")
	f.args = append(f.args, []any{a})
}
func (f *fxRecorder) SetDelay(tm, fb, mix float64) {
	f.calls = append(f.calls, "delay")
	f.args = append(f.args, []any{tm, fb, mix})
}
func (f *fxRecorder) SetCompression(th, r, a, rel float64) {
	f.calls = append(f.calls, "compression")
	f.args = append(f.args, []any{th, r, a, rel})
}

func TestEffects_ApplyClamps(t *testing.T) {
	fx := &fxRecorder{}
	e := DefaultEffects()
	e.FilterType = "comb"
	e.FilterFrequency = 1
	e.FilterQ = 99
	e.Reverb = 3
	e.DelayFeedback = 1.5
	e.Ratio = 0

	e.Apply(fx)

	require.Equal(t, []string{"filter", "distortion", "reverb", "delay", "compression"}, fx.calls)
	require.Equal(t, []any{"lowpass", 20.0, 30.0}, fx.args[0])
	require.Equal(t, []any{1.0}, fx.args[2])
	require.Equal(t, 0.95, fx.args[3][1])
	require.Equal(t, 1.0, fx.args[4][1])
}

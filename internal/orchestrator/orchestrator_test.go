package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haosfm/haos/internal/bridge"
	"github.com/haosfm/haos/internal/instrument"
	"github.com/haosfm/haos/internal/pubsub"
	"github.com/haosfm/haos/internal/sequencer"
	"github.com/haosfm/haos/internal/voice"
)

type command struct {
	name   string
	params map[string]any
}

// fakeBridge is a ready bridge that records every command.
type fakeBridge struct {
	mu       sync.Mutex
	commands []command
}

func (f *fakeBridge) Send(name string, params map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, command{name, params})
}

func (f *fakeBridge) IsReady() bool { return true }

func (f *fakeBridge) InitAudio()                { f.Send(bridge.CmdInitAudio, nil) }
func (f *fakeBridge) SetMasterVolume(v float64) { f.Send(bridge.CmdSetMasterVolume, map[string]any{"volume": v}) }
func (f *fakeBridge) SetBPM(bpm float64)        { f.Send(bridge.CmdSetBPM, map[string]any{"bpm": bpm}) }
func (f *fakeBridge) StopAllNotes()             { f.Send(bridge.CmdStopAllNotes, nil) }

func (f *fakeBridge) SetFilter(ft string, freq, q float64) {
	f.Send(bridge.CmdSetFilter, map[string]any{"type": ft})
}
func (f *fakeBridge) SetDistortion(float64)                       { f.Send(bridge.CmdSetDistortion, nil) }
func (f *fakeBridge) SetReverb(float64)                           { f.Send(bridge.CmdSetReverb, nil) }
func (f *fakeBridge) SetDelay(float64, float64, float64)          { f.Send(bridge.CmdSetDelay, nil) }
func (f *fakeBridge) SetCompression(float64, float64, float64, float64) {
	f.Send(bridge.CmdSetCompression, nil)
}

func (f *fakeBridge) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.commands))
	for i, c := range f.commands {
		out[i] = c.name
	}
	return out
}

func (f *fakeBridge) find(name string) []command {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []command
	for _, c := range f.commands {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeBridge) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = nil
}

func newTestOrchestrator(t *testing.T, opts ...Option) (*Orchestrator, *fakeBridge, *sequencer.Scheduler) {
	t.Helper()
	fb := &fakeBridge{}
	sched := sequencer.NewScheduler(sequencer.WithBPM(300))
	o := New(instrument.NewDefaultRegistry(fb), sched, fb, opts...)
	t.Cleanup(o.Close)
	return o, fb, sched
}

func step(active map[sequencer.Track]sequencer.Step) sequencer.StepEvent {
	return sequencer.StepEvent{Active: active}
}

func TestScenarioD_InvalidSelectionIsIgnored(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)

	require.True(t, o.SetDrumMachine("909"))
	require.False(t, o.SetDrumMachine("invalid"))
	assert.Equal(t, "909", o.Mixer().DrumMachine)

	require.False(t, o.SetBassSynth("juno106"), "juno is not a bass option")
	assert.Equal(t, instrument.IDTB303, o.Mixer().BassSynth)
	require.False(t, o.SetSynth("td3"))
	assert.Equal(t, instrument.IDARP2600, o.Mixer().Synth)
}

func TestHandleStep_ScalesByTrackAndMaster(t *testing.T) {
	o, fb, _ := newTestOrchestrator(t)
	o.SetTrackVolume(sequencer.HiHat, 0.5)
	o.SetMasterVolume(0.5)

	o.HandleStep(context.Background(), step(map[sequencer.Track]sequencer.Step{
		sequencer.HiHat: {Active: true, Velocity: 0.8},
	}))

	hats := fb.find(bridge.CmdPlayHiHat)
	require.Len(t, hats, 1)
	assert.InDelta(t, 0.2, hats[0].params["velocity"], 1e-9)
}

func TestHandleStep_DefaultMixAndRouting(t *testing.T) {
	o, fb, _ := newTestOrchestrator(t)

	o.HandleStep(context.Background(), step(map[sequencer.Track]sequencer.Step{
		sequencer.Kick:  {Active: true, Velocity: 1},
		sequencer.Clap:  {Active: true, Velocity: 1},
		sequencer.Bass:  {Active: true, Velocity: 1, Note: "C2", Accent: true},
		sequencer.Synth: {Active: true, Velocity: 1, Note: "E4"},
	}))

	assert.Equal(t, []string{
		bridge.CmdPlayKick, bridge.CmdPlayClap, bridge.CmdPlayTB303, bridge.CmdPlayARP2600,
	}, fb.names(), "tracks are played in track order")

	kick := fb.find(bridge.CmdPlayKick)[0]
	assert.InDelta(t, 0.8, kick.params["velocity"], 1e-9)
	clap := fb.find(bridge.CmdPlayClap)[0]
	assert.InDelta(t, 0.64, clap.params["velocity"], 1e-9)

	bass := fb.find(bridge.CmdPlayTB303)[0]
	assert.InDelta(t, 0.72, bass.params["velocity"], 1e-9)
	assert.InDelta(t, 0.2, bass.params["duration"], 1e-9)
	assert.Equal(t, true, bass.params["accent"])

	lead := fb.find(bridge.CmdPlayARP2600)[0]
	assert.InDelta(t, 0.3, lead.params["duration"], 1e-9)
	assert.InDelta(t, 329.6275569, lead.params["frequency"], 1e-6)
}

func TestHandleStep_SelectionReadFresh(t *testing.T) {
	o, fb, _ := newTestOrchestrator(t)
	ev := step(map[sequencer.Track]sequencer.Step{
		sequencer.Bass: {Active: true, Velocity: 1, Note: "A1"},
	})

	o.HandleStep(context.Background(), ev)
	o.SetBassSynth(instrument.IDARP2600)
	o.HandleStep(context.Background(), ev)

	assert.Equal(t, []string{bridge.CmdPlayTB303, bridge.CmdPlayARP2600}, fb.names())
}

func TestHandleStep_909Voicing(t *testing.T) {
	o, fb, _ := newTestOrchestrator(t)
	o.SetDrumMachine("909")
	o.SetMasterVolume(1)

	o.HandleStep(context.Background(), step(map[sequencer.Track]sequencer.Step{
		sequencer.Snare: {Active: true, Velocity: 0.5},
	}))
	snare := fb.find(bridge.CmdPlaySnare)[0]
	assert.InDelta(t, 0.575, snare.params["velocity"], 1e-9)
}

func TestHandleStep_MelodicWithoutNoteSkipped(t *testing.T) {
	o, fb, _ := newTestOrchestrator(t)
	o.HandleStep(context.Background(), step(map[sequencer.Track]sequencer.Step{
		sequencer.Bass:  {Active: true, Velocity: 1},
		sequencer.Synth: {Active: true, Velocity: 1},
	}))
	assert.Empty(t, fb.names())
}

func TestHandleStep_DrumAccent(t *testing.T) {
	o, fb, _ := newTestOrchestrator(t)
	o.SetMasterVolume(0.5)
	o.HandleStep(context.Background(), step(map[sequencer.Track]sequencer.Step{
		sequencer.Kick: {Active: true, Velocity: 1, Accent: true},
	}))
	assert.InDelta(t, 0.625, fb.find(bridge.CmdPlayKick)[0].params["velocity"], 1e-9)
}

func TestVolumesClamp(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	assert.Equal(t, 1.0, o.SetMasterVolume(3))
	assert.Equal(t, 0.0, o.SetMasterVolume(-1))
	assert.True(t, o.SetTrackVolume(sequencer.Bass, 7))
	assert.Equal(t, 1.0, o.Mixer().Volumes[sequencer.Bass])
	assert.False(t, o.SetTrackVolume(sequencer.Track("cowbell"), 0.5))
}

func TestPlayStopAndInitOnce(t *testing.T) {
	gate := instrument.NewResumeGate()
	fx := instrument.DefaultEffects()
	fb := &fakeBridge{}
	sched := sequencer.NewScheduler(sequencer.WithBPM(300))
	o := New(instrument.NewDefaultRegistry(fb), sched, fb,
		WithResumeGate(gate), WithEffects(fx, fb))
	defer o.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	states := o.PlayStates().Subscribe(ctx)

	o.Play()
	o.Play()
	require.True(t, sched.Running())
	require.True(t, gate.IsOpen())
	assert.Len(t, fb.find(bridge.CmdInitAudio), 1)
	assert.Len(t, fb.find(bridge.CmdSetFilter), 1)
	assert.Equal(t, 1.0, fb.find(bridge.CmdSetMasterVolume)[0].params["volume"])

	ev := <-states
	assert.Equal(t, pubsub.PlayState, ev.Type)
	assert.True(t, ev.Payload.Playing)

	o.Stop()
	require.False(t, sched.Running())
	ev = <-states
	assert.False(t, ev.Payload.Playing)

	o.Play()
	assert.Len(t, fb.find(bridge.CmdInitAudio), 1, "initAudio is sent once per session")
	assert.False(t, o.Toggle())
	assert.True(t, o.Toggle())
}

func TestSetBPM_RestartsRunningClock(t *testing.T) {
	o, fb, sched := newTestOrchestrator(t)
	o.Play()

	assert.Equal(t, 150.0, o.SetBPM(150))
	assert.True(t, sched.Running())
	assert.Equal(t, 100.0, sched.IntervalMs())
	assert.Equal(t, 150.0, fb.find(bridge.CmdSetBPM)[0].params["bpm"])

	assert.Equal(t, sequencer.MaxBPM, o.SetBPM(999))
}

func TestPanic(t *testing.T) {
	tracker := voice.NewTracker()
	defer tracker.Close()
	o, fb, sched := newTestOrchestrator(t, WithVoices(tracker))

	tracker.Track(instrument.IDTB303, "C2", time.Minute)
	o.Play()
	fb.reset()

	o.Panic()
	assert.False(t, sched.Running())
	assert.Zero(t, tracker.Stats().Count)

	stops := fb.find(bridge.CmdStopAllNotes)
	assert.Len(t, stops, 8, "one per adapter plus the global broadcast")
	assert.Nil(t, stops[len(stops)-1].params)
}

func TestCycle(t *testing.T) {
	o, _, _ := newTestOrchestrator(t)
	assert.Equal(t, instrument.IDARP2600, o.CycleBassSynth())
	assert.Equal(t, instrument.IDTD3, o.CycleBassSynth())
	assert.Equal(t, instrument.IDTB303, o.CycleBassSynth())

	assert.Equal(t, instrument.IDJuno106, o.CycleSynth())
}

func TestState(t *testing.T) {
	tracker := voice.NewTracker()
	defer tracker.Close()
	o, _, sched := newTestOrchestrator(t, WithVoices(tracker))
	sched.SetChain([]string{"A", "C"})
	tracker.Track("x", "y", time.Minute)

	snap := o.State()
	assert.False(t, snap.Playing)
	assert.Equal(t, 300.0, snap.BPM)
	assert.Equal(t, []string{"A", "C"}, snap.Chain)
	assert.Equal(t, 1, snap.Voices.Count)
	assert.Equal(t, 0.8, snap.Mixer.Master)
}

func TestMixerSanitized(t *testing.T) {
	m := MixerState{
		Volumes:     map[sequencer.Track]float64{sequencer.Kick: 2, "cowbell": 1},
		Master:      -1,
		DrumMachine: "707",
		BassSynth:   instrument.IDTD3,
		Synth:       "",
	}.Sanitized()

	assert.Equal(t, 1.0, m.Volumes[sequencer.Kick])
	assert.Equal(t, 0.7, m.Volumes[sequencer.HiHat])
	assert.NotContains(t, m.Volumes, sequencer.Track("cowbell"))
	assert.Zero(t, m.Master)
	assert.Equal(t, instrument.IDTR808, m.DrumMachine)
	assert.Equal(t, instrument.IDTD3, m.BassSynth)
	assert.Equal(t, instrument.IDARP2600, m.Synth)
}

func TestPauseResumesAndStopRewinds(t *testing.T) {
	o, _, sched := newTestOrchestrator(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	states := o.PlayStates().Subscribe(ctx)

	o.Pause() // no-op while stopped
	o.Play()
	<-states
	require.Eventually(t, func() bool { return sched.CurrentStep() >= 3 }, time.Second, time.Millisecond)

	o.Pause()
	ev := <-states
	assert.False(t, ev.Payload.Playing)
	snap := o.State()
	assert.False(t, snap.Playing)
	assert.True(t, snap.Paused)
	pos := snap.Step
	assert.GreaterOrEqual(t, pos, 3)

	o.Play()
	<-states
	assert.True(t, sched.Running())
	assert.NotZero(t, sched.CurrentStep(), "play after pause keeps the position")

	o.Stop()
	<-states
	snap = o.State()
	assert.False(t, snap.Paused)
	assert.Zero(t, snap.Step)
}

func TestPreviewDrum(t *testing.T) {
	gate := instrument.NewResumeGate()
	fb := &fakeBridge{}
	sched := sequencer.NewScheduler()
	o := New(instrument.NewDefaultRegistry(fb, instrument.WithResumer(gate)), sched, fb, WithResumeGate(gate))
	defer o.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.True(t, o.PreviewDrum(ctx, sequencer.Kick))
	assert.True(t, gate.IsOpen(), "a preview resumes audio")
	assert.Len(t, fb.find(bridge.CmdInitAudio), 1)
	kicks := fb.find(bridge.CmdPlayKick)
	require.Len(t, kicks, 1)
	assert.InDelta(t, PreviewVelocity, kicks[0].params["velocity"], 1e-9)

	o.SetDrumMachine("909")
	o.SetMasterVolume(0.1)
	require.True(t, o.PreviewDrum(ctx, sequencer.Snare))
	snare := fb.find(bridge.CmdPlaySnare)[0]
	assert.InDelta(t, 0.92, snare.params["velocity"], 1e-9, "previews ignore the mixer")

	assert.False(t, o.PreviewDrum(ctx, sequencer.Bass))
	assert.False(t, sched.Running(), "previews do not start the clock")
	assert.Len(t, fb.find(bridge.CmdInitAudio), 1)
}

func TestPreviewBass(t *testing.T) {
	o, fb, _ := newTestOrchestrator(t)
	ctx := context.Background()

	require.True(t, o.PreviewBass(ctx, nil))
	bass := fb.find(bridge.CmdPlayTB303)
	require.Len(t, bass, 1)
	assert.InDelta(t, 65.406, bass[0].params["frequency"], 1e-3)
	assert.InDelta(t, PreviewDuration.Seconds(), bass[0].params["duration"], 1e-9)

	o.SetBassSynth(instrument.IDTD3)
	require.True(t, o.PreviewBass(ctx, "A2"))
	bass = fb.find(bridge.CmdPlayTB303)
	require.Len(t, bass, 2)
	assert.InDelta(t, 110.0, bass[1].params["frequency"], 1e-6)
	assert.InDelta(t, 300.0, bass[1].params["cutoff"], 1e-9, "td3 voicing")
}

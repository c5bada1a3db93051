// Package monitor is the live terminal view of a running session: the step
// grid with its playhead, instrument selections, voice load, engine level
// and a log tail.
package monitor

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/haosfm/haos/internal/bridge"
	"github.com/haosfm/haos/internal/keys"
	"github.com/haosfm/haos/internal/log"
	"github.com/haosfm/haos/internal/orchestrator"
	"github.com/haosfm/haos/internal/pubsub"
	"github.com/haosfm/haos/internal/sequencer"
)

// maxLogLines bounds the log tail.
const maxLogLines = 200

// silenceDB is shown before the engine reports a level.
const silenceDB = -100.0

// Controller is the part of the orchestrator the monitor drives.
type Controller interface {
	State() orchestrator.Snapshot
	Toggle() bool
	Pause()
	Panic()
	PreviewDrum(ctx context.Context, t sequencer.Track) bool
	PreviewBass(ctx context.Context, note any) bool
	SetDrumMachine(id string) bool
	CycleBassSynth() string
	CycleSynth() string
	SetBPM(bpm float64) float64
}

// Grid is the part of the scheduler the monitor edits.
type Grid interface {
	Pattern() sequencer.Pattern
	ToggleStep(t sequencer.Track, i int) (bool, error)
	SwitchBank(name string) error
	Bank() string
}

// Sources are the brokers the monitor listens to. Any may be nil.
type Sources struct {
	Ticks  *pubsub.Broker[sequencer.Tick]
	Events *pubsub.Broker[bridge.Event]
	States *pubsub.Broker[orchestrator.PlayState]
	Logs   *log.LogListener
}

// Model is the monitor's bubbletea model.
type Model struct {
	ctx  context.Context
	ctrl Controller
	grid Grid

	ticks  *pubsub.ContinuousListener[sequencer.Tick]
	events *pubsub.ContinuousListener[bridge.Event]
	states *pubsub.ContinuousListener[orchestrator.PlayState]
	logs   *log.LogListener

	keys     keys.KeyMap
	help     help.Model
	viewport viewport.Model
	prefix   string

	width, height int
	showHelp      bool

	state     orchestrator.Snapshot
	pattern   sequencer.Pattern
	playhead  int
	levelDB   float64
	lastSound string
	logLines  []string
}

// New creates the monitor. Step cells are bubblezone zones, so the host
// must call zone.NewGlobal before running the program.
func New(ctx context.Context, ctrl Controller, grid Grid, src Sources) Model {
	m := Model{
		ctx:      ctx,
		ctrl:     ctrl,
		grid:     grid,
		logs:     src.Logs,
		keys:     keys.DefaultKeyMap(),
		help:     help.New(),
		viewport: viewport.New(0, 0),
		prefix:   zone.NewPrefix(),
		playhead: -1,
		levelDB:  silenceDB,
	}
	if src.Ticks != nil {
		m.ticks = pubsub.NewTypedListener(ctx, src.Ticks, pubsub.StepTick)
	}
	if src.Events != nil {
		m.events = pubsub.NewContinuousListener(ctx, src.Events)
	}
	if src.States != nil {
		m.states = pubsub.NewContinuousListener(ctx, src.States)
	}
	m.refresh()
	return m
}

// Init starts every listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(relisten(m.ticks), relisten(m.events), relisten(m.states), relisten(m.logs))
}

// Update handles input and broker events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.resizeLog()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft {
			m.handleClick(msg)
		}
		return m, nil

	case pubsub.Event[sequencer.Tick]:
		m.playhead = msg.Payload.Step
		m.refresh()
		return m, relisten(m.ticks)

	case pubsub.Event[bridge.Event]:
		m.handleEngineEvent(msg.Payload)
		return m, relisten(m.events)

	case pubsub.Event[orchestrator.PlayState]:
		if !msg.Payload.Playing {
			m.playhead = -1
		}
		m.refresh()
		return m, relisten(m.states)

	case pubsub.Event[string]:
		m.appendLog(msg.Payload)
		return m, relisten(m.logs)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Play):
		if !m.ctrl.Toggle() {
			m.playhead = -1
		}
	case key.Matches(msg, m.keys.Pause):
		m.ctrl.Pause()
	case key.Matches(msg, m.keys.PreviewDrum):
		m.ctrl.PreviewDrum(m.ctx, sequencer.Track(keys.PreviewDrumKeys[msg.String()]))
	case key.Matches(msg, m.keys.PreviewBass):
		m.ctrl.PreviewBass(m.ctx, m.previewNote())
	case key.Matches(msg, m.keys.Panic):
		m.ctrl.Panic()
		m.playhead = -1
	case key.Matches(msg, m.keys.Drums808):
		m.ctrl.SetDrumMachine("808")
	case key.Matches(msg, m.keys.Drums909):
		m.ctrl.SetDrumMachine("909")
	case key.Matches(msg, m.keys.CycleBass):
		m.ctrl.CycleBassSynth()
	case key.Matches(msg, m.keys.CycleSynth):
		m.ctrl.CycleSynth()
	case key.Matches(msg, m.keys.BPMUp):
		m.ctrl.SetBPM(m.state.BPM + keys.BPMStep)
	case key.Matches(msg, m.keys.BPMDown):
		m.ctrl.SetBPM(m.state.BPM - keys.BPMStep)
	case key.Matches(msg, m.keys.NextBank):
		i := slices.Index(sequencer.Banks, m.grid.Bank())
		if err := m.grid.SwitchBank(sequencer.Banks[(i+1)%len(sequencer.Banks)]); err != nil {
			log.ErrorErr(log.CatUI, "switching bank", err)
		}
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		m.help.ShowAll = m.showHelp
		m.resizeLog()
	default:
		return m, nil
	}
	m.refresh()
	return m, nil
}

// previewNote is the first bass note of the current bank, if any.
func (m Model) previewNote() any {
	for _, st := range m.grid.Pattern()[sequencer.Bass] {
		if st.Active && st.Note != "" {
			return st.Note
		}
	}
	return nil
}

func (m *Model) handleClick(msg tea.MouseMsg) {
	for _, t := range sequencer.Tracks {
		for i := range m.pattern[t] {
			z := zone.Get(cellID(m.prefix, t, i))
			if z == nil || !z.InBounds(msg) {
				continue
			}
			if _, err := m.grid.ToggleStep(t, i); err != nil {
				log.ErrorErr(log.CatUI, "toggling step", err, "track", t, "step", i)
			}
			m.refresh()
			return
		}
	}
}

func (m *Model) handleEngineEvent(ev bridge.Event) {
	switch ev.Type {
	case bridge.EventAudioLevel:
		m.levelDB = ev.Float("db", silenceDB)
	case bridge.EventSoundPlayed:
		if name, ok := ev.Payload["command"].(string); ok {
			m.lastSound = name
		}
	}
}

func (m *Model) appendLog(line string) {
	m.logLines = append(m.logLines, strings.TrimRight(line, "\n"))
	if over := len(m.logLines) - maxLogLines; over > 0 {
		m.logLines = slices.Delete(m.logLines, 0, over)
	}
	m.viewport.SetContent(renderLogLines(m.logLines, m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m *Model) refresh() {
	m.state = m.ctrl.State()
	m.pattern = m.grid.Pattern()
}

// fixedRows is the height of everything above the log pane.
func (m Model) fixedRows() int {
	rows := 4 + len(sequencer.Tracks) + 2
	if m.showHelp {
		rows += 4
	} else {
		rows++
	}
	return rows
}

func (m *Model) resizeLog() {
	m.viewport.Width = m.width
	m.viewport.Height = max(0, m.height-m.fixedRows())
	m.viewport.SetContent(renderLogLines(m.logLines, m.width))
	m.viewport.GotoBottom()
}

// relisten re-arms l, tolerating sources the monitor was built without.
func relisten[T any](l *pubsub.ContinuousListener[T]) tea.Cmd {
	if l == nil {
		return nil
	}
	return l.Listen()
}

func cellID(prefix string, t sequencer.Track, i int) string {
	return fmt.Sprintf("%sstep-%s-%d", prefix, t, i)
}

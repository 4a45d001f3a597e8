package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/adbferry/adbferry/rate"
	"github.com/adbferry/adbferry/transfer"
	"github.com/adbferry/adbferry/types"
)

const defaultBarWidth = 48

// eventMsg wraps one workflow event for the update loop.
type eventMsg struct {
	ev transfer.Event
}

// closedMsg signals that the workflow's event channel closed.
type closedMsg struct{}

// TransferModel is the Bubble Tea model for a live transfer.
type TransferModel struct {
	attempt   types.TransferAttempt
	events    <-chan transfer.Event
	cancel    context.CancelFunc
	estimator *rate.Estimator
	now       func() time.Time

	bar  progress.Model
	spin spinner.Model

	state     transfer.WorkflowState
	fraction  float64
	speed     rate.Speed
	hasSpeed  bool
	done      *transfer.CompletedEvent
	width     int
	canceling bool
}

// NewTransferModel creates the live view for one attempt. samplingInterval
// damps the speed readout; zero selects the default.
func NewTransferModel(
	attempt types.TransferAttempt,
	events <-chan transfer.Event,
	cancel context.CancelFunc,
	samplingInterval time.Duration,
) TransferModel {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = defaultBarWidth

	spin := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(ActiveStyle),
	)

	return TransferModel{
		attempt:   attempt,
		events:    events,
		cancel:    cancel,
		estimator: rate.NewEstimator(samplingInterval),
		now:       time.Now,
		bar:       bar,
		spin:      spin,
		state:     transfer.StateIdle,
	}
}

// Done returns the terminal event, or nil when the view exited before one
// arrived.
func (m TransferModel) Done() *transfer.CompletedEvent {
	return m.done
}

// Init implements tea.Model.
func (m TransferModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, waitForEvent(m.events))
}

// Update implements tea.Model.
func (m TransferModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 16; w > 0 && w < defaultBarWidth {
			m.bar.Width = w
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			// Cancel the attempt but keep consuming events: the
			// pipeline tears down and the terminal outcome still
			// arrives before the channel closes.
			m.canceling = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, nil
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case eventMsg:
		m = m.apply(msg.ev)
		return m, waitForEvent(m.events)

	case closedMsg:
		return m, tea.Quit
	}

	return m, nil
}

// apply folds one workflow event into the view state.
func (m TransferModel) apply(ev transfer.Event) TransferModel {
	switch e := ev.(type) {
	case transfer.StateEvent:
		m.state = e.State
		m.attempt = e.Attempt
		if e.State == transfer.StateTransferring {
			m.estimator.Reset(e.Attempt.TotalBytes)
		}
	case transfer.ProgressEvent:
		m.fraction = e.Fraction
		if speed, ok := m.estimator.Update(e.Fraction, m.now()); ok {
			m.speed = speed
			m.hasSpeed = true
		}
	case transfer.CompletedEvent:
		m.done = &e
	}
	return m
}

// View implements tea.Model.
func (m TransferModel) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(fmt.Sprintf("adbferry %s", m.attempt.Direction)))
	b.WriteString("\n")

	var rows []string
	rows = append(rows, labeled("local", m.attempt.LocalPath))
	rows = append(rows, labeled("device", m.attempt.RemotePath))
	if m.attempt.TotalBytes > 0 {
		rows = append(rows, labeled("size", rate.FormatByteCount(m.attempt.TotalBytes)))
	}
	rows = append(rows, labeled("state", StateStyle(m.state.String()).Render(m.state.String())))
	b.WriteString(BoxStyle.Render(strings.Join(rows, "\n")))
	b.WriteString("\n")

	switch {
	case m.done != nil:
		b.WriteString(m.viewOutcome())
	case m.canceling:
		b.WriteString(m.spin.View())
		b.WriteString(ErrorStyle.Render(" canceling..."))
	case m.state == transfer.StateTransferring:
		b.WriteString(m.viewProgress())
	default:
		b.WriteString(m.spin.View())
		b.WriteString(ActiveStyle.Render(" " + m.stateLabel()))
	}

	if m.done == nil {
		b.WriteString(HelpStyle.Render("\nPress q or Ctrl+C to cancel"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m TransferModel) viewProgress() string {
	if m.estimator.Indeterminate() {
		// Unknown size: no meaningful percentage, show liveness only.
		return m.spin.View() + ActiveStyle.Render(" transferring (size unknown)")
	}

	line := m.bar.ViewAs(m.fraction)
	line += fmt.Sprintf(" %5.1f%%", m.fraction*100)
	if m.hasSpeed {
		line += "  " + SpeedStyle.Render(m.speed.String())
	}
	return line
}

func (m TransferModel) viewOutcome() string {
	if m.done.Outcome.Succeeded() {
		return SuccessStyle.Render("transfer complete") +
			ValueStyle.Render(fmt.Sprintf(" in %s", renderDuration(m.done.Record.DurationMS)))
	}

	out := ErrorStyle.Render("transfer failed")
	if diag := m.done.Outcome.Diagnostic; diag != "" {
		out += "\n" + ErrorStyle.Render(diag)
	}
	return out
}

func (m TransferModel) stateLabel() string {
	switch m.state {
	case transfer.StateCheckingDevice:
		return "checking device"
	case transfer.StateSizing:
		return "measuring source"
	default:
		return m.state.String()
	}
}

func labeled(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value)
}

func renderDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	if d < time.Second {
		return d.String()
	}
	return d.Round(100 * time.Millisecond).String()
}

// waitForEvent reads the next workflow event as a Bubble Tea command.
func waitForEvent(events <-chan transfer.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return closedMsg{}
		}
		return eventMsg{ev: ev}
	}
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "cancel"),
	),
}

// RunTransfer drives the live view until the attempt reaches its terminal
// event and the channel closes. Returns the terminal event, which is nil
// only if the program was torn down before the workflow finished.
func RunTransfer(
	attempt types.TransferAttempt,
	events <-chan transfer.Event,
	cancel context.CancelFunc,
	samplingInterval time.Duration,
) (*transfer.CompletedEvent, error) {
	model := NewTransferModel(attempt, events, cancel, samplingInterval)
	p := tea.NewProgram(model)
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	if m, ok := final.(TransferModel); ok {
		return m.Done(), nil
	}
	return nil, nil
}

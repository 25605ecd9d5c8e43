// Package overlay renders the controller's status in a small terminal UI fed
// by the status listener.
package overlay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"warpvoice/internal/status"
)

// levelScale maps an RMS level onto the audio bar; 0.1 RMS fills it.
const levelScale = 1000

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	recordingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4444")).
			Bold(true)

	confirmingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFCC00")).
			Bold(true)

	readyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	textStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)

type updateMsg status.Update

// Model is the overlay UI state.
type Model struct {
	snap       status.Snapshot
	received   bool
	bar        progress.Model
	addr       string
	confirmKey string
	abortKey   string
}

// NewModel returns a model waiting for its first update on addr.
func NewModel(addr, confirmKey, abortKey string) Model {
	return Model{
		bar: progress.New(
			progress.WithDefaultGradient(),
			progress.WithWidth(30),
		),
		addr:       addr,
		confirmKey: confirmKey,
		abortKey:   abortKey,
	}
}

// Snapshot returns the merged state shown by the model.
func (m Model) Snapshot() status.Snapshot {
	return m.snap
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(msg.Width-20, 60))
	case updateMsg:
		m.snap.Merge(status.Update(msg))
		m.received = true
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Warp Voice"))
	b.WriteString("\n\n")

	if !m.received {
		b.WriteString(labelStyle.Render("Waiting for controller on " + m.addr))
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("q: close overlay"))
		return b.String()
	}

	b.WriteString(m.renderPhase())
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Audio  "))
	b.WriteString(m.bar.ViewAs(AudioPercent(m.snap.AudioLevel) / 100))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Timer: ") + FormatTimer(m.snap.Timer))
	b.WriteString("   ")
	b.WriteString(labelStyle.Render(fmt.Sprintf("Cycle: %d", m.snap.Cycle)))
	b.WriteString("\n")
	if m.snap.StatusText != "" {
		b.WriteString(textStyle.Render(m.snap.StatusText))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(fmt.Sprintf("%s: Confirm | %s: Exit | q: close overlay",
		strings.ToUpper(m.confirmKey), strings.ToUpper(m.abortKey))))
	return b.String()
}

func (m Model) renderPhase() string {
	switch {
	case m.snap.Recording:
		return recordingStyle.Render("● Recording...")
	case m.snap.Confirming:
		return confirmingStyle.Render("◐ Confirming...")
	default:
		return readyStyle.Render("○ Ready")
	}
}

// AudioPercent scales a level for the audio bar, capped at 100.
func AudioPercent(level float64) float64 {
	return max(0, min(level*levelScale, 100))
}

// FormatTimer renders seconds with one decimal, or "--" when zero.
func FormatTimer(seconds float64) string {
	if seconds <= 0 {
		return "--"
	}
	return fmt.Sprintf("%.1fs", seconds)
}

// Options configures Run.
type Options struct {
	Addr       string
	ConfirmKey string
	AbortKey   string
	Logger     *slog.Logger
	Debug      bool

	// Input and Output default to the process terminal.
	Input  io.Reader
	Output io.Writer
}

// Run listens for status updates and shows them until the user quits or
// ctx is done.
func Run(ctx context.Context, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	srv, err := status.Listen(opts.Addr, opts.Logger, opts.Debug)
	if err != nil {
		return err
	}
	defer srv.Close()
	opts.Logger.Info("overlay listening", "addr", srv.Addr())

	g, ctx := errgroup.WithContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if opts.Input != nil {
		progOpts = append(progOpts, tea.WithInput(opts.Input))
	}
	if opts.Output != nil {
		progOpts = append(progOpts, tea.WithOutput(opts.Output))
	}
	program := tea.NewProgram(NewModel(srv.Addr(), opts.ConfirmKey, opts.AbortKey), progOpts...)

	g.Go(func() error {
		return srv.Serve(ctx, func(u status.Update) {
			program.Send(updateMsg(u))
		})
	})
	g.Go(func() error {
		defer cancel()
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("overlay ui: %w", err)
		}
		return nil
	})

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/bnema/datagen/internal/domain"
	"github.com/bnema/datagen/internal/ports"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type drainedMsg struct {
	err error
}

// drainModel shows how many deliveries are still outstanding while a sink
// flushes, and how long the flush has been running.
type drainModel struct {
	spinner spinner.Model
	sink    string
	pending func() int64
	started time.Time
	now     func() time.Time
	flush   tea.Cmd
	err     error
	done    bool
}

func newDrainModel(sink string, pending func() int64, now func() time.Time, flush tea.Cmd) drainModel {
	return drainModel{
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
		),
		sink:    sink,
		pending: pending,
		started: now(),
		now:     now,
		flush:   flush,
	}
}

func (m drainModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.flush)
}

func (m drainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case drainedMsg:
		m.done, m.err = true, msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m drainModel) View() string {
	if m.done {
		return ""
	}
	elapsed := m.now().Sub(m.started).Truncate(100 * time.Millisecond)
	return fmt.Sprintf("%s waiting for %s: %d outstanding (%s)", m.spinner.View(), m.sink, m.pending(), elapsed)
}

// drainingSink counts messages handed to the wrapped sink that have not yet
// reported an outcome, and shows a spinner with that count while it flushes.
type drainingSink struct {
	ports.Sink
	name        string
	output      io.Writer
	outstanding atomic.Int64
}

func newDrainingSink(sink ports.Sink, name string, output io.Writer) *drainingSink {
	return &drainingSink{Sink: sink, name: name, output: output}
}

func (s *drainingSink) Send(ctx context.Context, msg domain.Message, done ports.DeliveryCallback) error {
	s.outstanding.Add(1)
	err := s.Sink.Send(ctx, msg, func(msg domain.Message, ts time.Time, err error) {
		s.outstanding.Add(-1)
		if done != nil {
			done(msg, ts, err)
		}
	})
	if err != nil {
		// A refused message never reaches the callback.
		s.outstanding.Add(-1)
	}
	return err
}

func (s *drainingSink) Outstanding() int64 {
	return s.outstanding.Load()
}

func (s *drainingSink) Flush(ctx context.Context) error {
	model := newDrainModel(s.name, s.Outstanding, time.Now, func() tea.Msg {
		return drainedMsg{err: s.Sink.Flush(ctx)}
	})

	final, err := tea.NewProgram(model,
		tea.WithInput(nil),
		tea.WithOutput(s.output),
		tea.WithContext(ctx),
	).Run()
	if err != nil {
		return err
	}

	drained, ok := final.(drainModel)
	if !ok {
		return fmt.Errorf("unexpected final drain model type %T", final)
	}
	return drained.err
}

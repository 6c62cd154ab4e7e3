package summary

import (
	"errors"
	"io"

	"github.com/bnema/datagen/internal/domain"
	tea "github.com/charmbracelet/bubbletea"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	runs   []domain.RunSummary
	opts   RenderOptions
	view   func([]domain.RunSummary, RenderOptions, styles) string
	styles styles
	output string
}

func newModel(runs []domain.RunSummary, opts RenderOptions, view func([]domain.RunSummary, RenderOptions, styles) string) model {
	return model{
		runs:   runs,
		opts:   opts,
		view:   view,
		styles: newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = m.view(m.runs, m.opts, m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

// RenderRun renders the end-of-run report for a single run.
func RenderRun(run domain.RunSummary, opts RenderOptions) (string, error) {
	return render(newModel([]domain.RunSummary{run}, opts, func(runs []domain.RunSummary, opts RenderOptions, s styles) string {
		return renderRunView(runs[0], opts, s)
	}))
}

// RenderHistory renders the run ledger, one block per run.
func RenderHistory(runs []domain.RunSummary, opts RenderOptions) (string, error) {
	return render(newModel(runs, opts, renderHistoryView))
}

func render(m model) (string, error) {
	p := tea.NewProgram(
		m,
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}

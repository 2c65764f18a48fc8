// Package tui is the terminal front-end: the calendar account list and the
// delete confirmation dialog.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/guilherme-santos/calmanager/internal"
	"github.com/guilherme-santos/calmanager/internal/confirm"
	"github.com/guilherme-santos/calmanager/internal/viewmodel"
)

type Model struct {
	// ctx scopes the commands the model starts. It lives as long as the
	// program and is cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc
	vm     *viewmodel.ViewModel
	gate   internal.Gate
	ctrl   *confirm.Controller
	logger *zap.Logger

	states      <-chan viewmodel.FetchState
	unsubscribe func()

	state   viewmodel.FetchState
	granted bool
	cursor  int
	spinner spinner.Model
	status  string
	width   int
}

type Option func(*Model)

func WithController(ctrl *confirm.Controller) Option {
	return func(m *Model) {
		m.ctrl = ctrl
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(m *Model) {
		m.logger = logger
	}
}

func New(ctx context.Context, vm *viewmodel.ViewModel, gate internal.Gate, opts ...Option) *Model {
	ctx, cancel := context.WithCancel(ctx)
	m := &Model{
		ctx:     ctx,
		cancel:  cancel,
		vm:      vm,
		gate:    gate,
		ctrl:    confirm.New(),
		logger:  zap.NewNop(),
		state:   vm.State(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.states, m.unsubscribe = vm.Subscribe()
	return m
}

// Close stops listening to the view model and cancels the listings and
// deletions still running.
func (m *Model) Close() {
	m.cancel()
	m.unsubscribe()
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.checkGrant(),
		m.spinner.Tick,
		listen(m.states),
	)
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle().Render(Title))
	b.WriteString("\n")
	if m.granted {
		b.WriteString(RenderAccounts(m.state, m.cursor, m.spinner.View()))
	} else {
		b.WriteString(MessageStyle().Render(NotGrantedText))
	}
	b.WriteString("\n")

	snap := m.ctrl.Snapshot()
	if dialog := RenderDialog(snap); dialog != "" {
		b.WriteString(dialog)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(RenderHelp(snap.Open()))
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(StatusStyle(m.width).Render(m.status))
	}
	return b.String()
}

func (m *Model) selected() (internal.Account, bool) {
	if m.state.Status != viewmodel.Success || m.cursor >= len(m.state.Accounts) {
		return internal.Account{}, false
	}
	return m.state.Accounts[m.cursor], true
}

package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/guilherme-santos/calmanager/internal"
	"github.com/guilherme-santos/calmanager/internal/confirm"
	"github.com/guilherme-santos/calmanager/internal/viewmodel"
)

type (
	grantMsg struct {
		granted bool
		err     error
	}
	stateMsg  viewmodel.FetchState
	tickMsg   struct{ session confirm.Session }
	deleteMsg struct {
		account internal.Account
		err     error
	}
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case grantMsg:
		return m, m.handleGrant(msg)
	case stateMsg:
		m.handleState(viewmodel.FetchState(msg))
		return m, listen(m.states)
	case tickMsg:
		snap, ok := m.ctrl.Tick(msg.session)
		if ok && !snap.CanConfirm() {
			return m, tick(msg.session)
		}
		return m, nil
	case deleteMsg:
		m.handleDelete(msg)
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		return tea.Quit
	}
	if m.ctrl.Snapshot().Open() {
		switch msg.String() {
		case "esc", "n":
			m.ctrl.Dismiss()
		case "enter", "y":
			acc, err := m.ctrl.Confirm()
			if err != nil {
				return nil
			}
			m.status = fmt.Sprintf("Deleting %s...", acc.Label())
			return m.delete(acc)
		}
		return nil
	}

	switch msg.String() {
	case "q":
		return tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.state.Accounts)-1 {
			m.cursor++
		}
	case "d", "delete":
		acc, ok := m.selected()
		if !ok {
			return nil
		}
		snap := m.ctrl.Open(acc)
		return tick(snap.Session)
	case "r":
		if !m.granted {
			return m.checkGrant()
		}
		return m.fetch()
	}
	return nil
}

func (m *Model) handleGrant(msg grantMsg) tea.Cmd {
	if msg.err != nil {
		m.logger.Error("unable to check calendar access", zap.Error(msg.err))
		m.status = "Unable to check calendar access: " + msg.err.Error()
		return nil
	}
	m.granted = msg.granted
	if !m.granted {
		return nil
	}
	return m.fetch()
}

func (m *Model) handleState(st viewmodel.FetchState) {
	m.state = st
	if m.cursor >= len(st.Accounts) {
		m.cursor = max(len(st.Accounts)-1, 0)
	}
}

func (m *Model) handleDelete(msg deleteMsg) {
	if msg.err != nil {
		m.status = fmt.Sprintf("Unable to delete %s: %v", msg.account.Label(), msg.err)
		return
	}
	m.status = fmt.Sprintf("Deleted %s", msg.account.Label())
}

func (m *Model) checkGrant() tea.Cmd {
	return func() tea.Msg {
		granted, err := m.gate.Granted(m.ctx)
		return grantMsg{granted: granted, err: err}
	}
}

// fetch lists the accounts; the result reaches the model through the view
// model subscription.
func (m *Model) fetch() tea.Cmd {
	return func() tea.Msg {
		m.vm.FetchIfError(m.ctx)
		return nil
	}
}

func (m *Model) delete(acc internal.Account) tea.Cmd {
	return func() tea.Msg {
		_, err := m.vm.Delete(m.ctx, acc.ID)
		return deleteMsg{account: acc, err: err}
	}
}

func listen(ch <-chan viewmodel.FetchState) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-ch
		if !ok {
			return nil
		}
		return stateMsg(st)
	}
}

func tick(session confirm.Session) tea.Cmd {
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return tickMsg{session: session}
	})
}

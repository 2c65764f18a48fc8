package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/guilherme-santos/calmanager/internal"
	"github.com/guilherme-santos/calmanager/internal/confirm"
	"github.com/guilherme-santos/calmanager/internal/sqlite"
	"github.com/guilherme-santos/calmanager/internal/viewmodel"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

type failingSource struct {
	internal.Source
	err error
}

func (s failingSource) DeleteAccount(context.Context, int64) error {
	return s.err
}

// blockingSource lists nothing until its context is done.
type blockingSource struct {
	internal.Source
	entered chan struct{}
}

func (s blockingSource) ListAccounts(ctx context.Context) ([]internal.Account, error) {
	close(s.entered)
	<-ctx.Done()
	return nil, ctx.Err()
}

type harness struct {
	t       *testing.T
	m       *Model
	vm      *viewmodel.ViewModel
	storage *sqlite.Storage
	clock   *testClock
}

func newHarness(t *testing.T, accounts []internal.Account, wrap func(internal.Source) internal.Source) *harness {
	t.Helper()

	storage, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("sqlite.Open() returned an error: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	for i := range accounts {
		if err := storage.AddAccount(context.Background(), &accounts[i]); err != nil {
			t.Fatalf("AddAccount() returned an error: %v", err)
		}
	}

	var source internal.Source = storage
	if wrap != nil {
		source = wrap(source)
	}
	clock := &testClock{now: time.Date(2021, 11, 20, 10, 0, 0, 0, time.UTC)}
	vm := viewmodel.New(source, nil)
	m := New(context.Background(), vm, internal.GrantedSource{Source: source},
		WithController(confirm.New(confirm.WithClock(clock.Now))))
	t.Cleanup(m.Close)

	return &harness{t: t, m: m, vm: vm, storage: storage, clock: clock}
}

// send delivers msg and returns the command the model asked for.
func (h *harness) send(msg tea.Msg) tea.Cmd {
	h.t.Helper()

	_, cmd := h.m.Update(msg)
	return cmd
}

func (h *harness) key(k string) tea.Cmd {
	switch k {
	case "enter":
		return h.send(tea.KeyMsg{Type: tea.KeyEnter})
	case "esc":
		return h.send(tea.KeyMsg{Type: tea.KeyEsc})
	case "down":
		return h.send(tea.KeyMsg{Type: tea.KeyDown})
	}
	return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
}

// start grants access and publishes the first listing.
func (h *harness) start() {
	h.t.Helper()

	h.drainState()
	cmd := h.send(grantMsg{granted: true})
	if cmd == nil {
		h.t.Fatal("expected granting access to fetch the accounts")
	}
	cmd()
	h.drainState()
}

// drainState hands the latest published state to the model.
func (h *harness) drainState() {
	h.t.Helper()

	select {
	case st := <-h.m.states:
		h.send(stateMsg(st))
	default:
	}
}

// tickSecond lets one second pass and delivers the dialog tick.
func (h *harness) tickSecond() {
	h.clock.now = h.clock.now.Add(time.Second)
	h.send(tickMsg{session: h.m.ctrl.Snapshot().Session})
}

func twoAccounts() []internal.Account {
	return []internal.Account{
		{DisplayName: "Work", AccountName: "me@work.com", OwnerName: "me@work.com"},
		{DisplayName: "Home", AccountName: "me@home.com", OwnerName: "me"},
	}
}

func TestModel_DeleteEndToEnd(t *testing.T) {
	h := newHarness(t, twoAccounts(), nil)
	h.start()

	view := h.m.View()
	if !strings.Contains(view, "me@work.com · me@work.com · id 1") || !strings.Contains(view, "me@home.com · me · id 2") {
		t.Fatalf("expected both accounts to be listed, got:\n%s", view)
	}

	if cmd := h.key("d"); cmd == nil {
		t.Fatal("expected opening the dialog to schedule a tick")
	}
	snap := h.m.ctrl.Snapshot()
	if snap.State != confirm.Counting || snap.Remaining != 3 || snap.Target.DisplayName != "Work" {
		t.Fatalf("expected a dialog counting from 3 for Work, got %+v", snap)
	}
	if view := h.m.View(); !strings.Contains(view, "Confirm(3)") || !strings.Contains(view, "Work(me@work.com)") {
		t.Fatalf("expected the dialog to show Confirm(3), got:\n%s", view)
	}

	// Confirming early does nothing.
	if cmd := h.key("enter"); cmd != nil {
		t.Fatal("expected confirm to be ignored while counting")
	}

	for i := 0; i < 3; i++ {
		h.tickSecond()
	}
	if !h.m.ctrl.Snapshot().CanConfirm() {
		t.Fatal("expected confirm to be enabled after 3 seconds")
	}
	if view := h.m.View(); strings.Contains(view, "Confirm(") {
		t.Fatalf("expected the countdown to be gone, got:\n%s", view)
	}

	cmd := h.key("enter")
	if cmd == nil {
		t.Fatal("expected confirm to delete the account")
	}
	h.send(cmd())
	h.drainState()

	if h.m.ctrl.Snapshot().Open() {
		t.Error("expected the dialog to be closed")
	}
	view = h.m.View()
	if strings.Contains(view, "id 1") || !strings.Contains(view, "me@home.com · me · id 2") {
		t.Errorf("expected only Home to be left, got:\n%s", view)
	}
	if !strings.Contains(view, "Deleted Work(me@work.com)") {
		t.Errorf("expected a deletion notice, got:\n%s", view)
	}
}

func TestModel_NoAccounts(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.start()

	view := h.m.View()
	if !strings.Contains(view, EmptyText) {
		t.Errorf("expected the empty state, got:\n%s", view)
	}
	if strings.Contains(view, " · id ") {
		t.Errorf("expected no rows, got:\n%s", view)
	}
	if cmd := h.key("d"); cmd != nil || h.m.ctrl.Snapshot().Open() {
		t.Error("expected delete to do nothing without accounts")
	}
}

func TestModel_NotGranted(t *testing.T) {
	h := newHarness(t, twoAccounts(), nil)

	if cmd := h.send(grantMsg{granted: false}); cmd != nil {
		t.Error("expected nothing to be fetched before access is granted")
	}
	if view := h.m.View(); !strings.Contains(view, NotGrantedText) {
		t.Errorf("expected the not granted notice, got:\n%s", view)
	}
	if st := h.vm.State(); st.Status != viewmodel.Loading {
		t.Errorf("expected the view model not to have fetched, got %s", st.Status)
	}
}

func TestModel_DismissCancelsCountdown(t *testing.T) {
	h := newHarness(t, twoAccounts(), nil)
	h.start()

	h.key("down")
	h.key("d")
	session := h.m.ctrl.Snapshot().Session
	h.tickSecond()
	h.key("esc")

	if h.m.ctrl.Snapshot().Open() {
		t.Fatal("expected the dialog to be closed")
	}
	// The tick scheduled before dismissing arrives late.
	if cmd := h.send(tickMsg{session: session}); cmd != nil {
		t.Error("expected a stale tick not to schedule another one")
	}
	if h.m.ctrl.Snapshot().Open() {
		t.Error("expected a stale tick not to reopen the dialog")
	}

	// Reopening starts from 3 again.
	h.key("d")
	if snap := h.m.ctrl.Snapshot(); snap.Remaining != 3 || snap.Target.DisplayName != "Home" {
		t.Errorf("expected a fresh countdown for Home, got %+v", snap)
	}
}

func TestModel_DeleteFailureKeepsList(t *testing.T) {
	deleteErr := errors.New("calendar is read-only")
	h := newHarness(t, twoAccounts(), func(s internal.Source) internal.Source {
		return failingSource{Source: s, err: deleteErr}
	})
	h.start()

	h.key("d")
	for i := 0; i < 3; i++ {
		h.tickSecond()
	}
	cmd := h.key("enter")
	if cmd == nil {
		t.Fatal("expected confirm to try the deletion")
	}
	h.send(cmd())
	h.drainState()

	view := h.m.View()
	if !strings.Contains(view, "Unable to delete Work(me@work.com): ") || !strings.Contains(view, deleteErr.Error()) {
		t.Errorf("expected a failure notice, got:\n%s", view)
	}
	if !strings.Contains(view, "id 1") || !strings.Contains(view, "id 2") {
		t.Errorf("expected both accounts to stay listed, got:\n%s", view)
	}
}

func TestRenderAccounts(t *testing.T) {
	tests := map[string]struct {
		state viewmodel.FetchState
		want  string
		not   string
	}{
		"loading": {
			state: viewmodel.LoadingState(),
			want:  LoadingText,
		},
		"error": {
			state: viewmodel.ErrorState(errors.New("provider unavailable")),
			want:  "Unable to load calendar accounts: provider unavailable",
			not:   EmptyText,
		},
		"empty": {
			state: viewmodel.SuccessState(nil),
			want:  EmptyText,
		},
		"accounts": {
			state: viewmodel.SuccessState([]internal.Account{{ID: 7, DisplayName: "Team", AccountName: "me@gmail.com", OwnerName: "team@group.calendar.google.com"}}),
			want:  "me@gmail.com · team@group.calendar.google.com · id 7",
			not:   EmptyText,
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := RenderAccounts(tt.state, 0, "")
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in:\n%s", tt.want, got)
			}
			if tt.not != "" && strings.Contains(got, tt.not) {
				t.Errorf("did not expect %q in:\n%s", tt.not, got)
			}
		})
	}
}

func TestRenderAccounts_SourceOrder(t *testing.T) {
	st := viewmodel.SuccessState([]internal.Account{
		{ID: 3, DisplayName: "Zeta"},
		{ID: 1, DisplayName: "Alpha"},
	})

	got := RenderAccounts(st, 0, "")
	if strings.Index(got, "Zeta") > strings.Index(got, "Alpha") {
		t.Errorf("expected accounts in source order, got:\n%s", got)
	}
}

func TestModel_CloseCancelsRunningCommands(t *testing.T) {
	entered := make(chan struct{})
	h := newHarness(t, nil, func(s internal.Source) internal.Source {
		return blockingSource{Source: s, entered: entered}
	})

	cmd := h.send(grantMsg{granted: true})
	if cmd == nil {
		t.Fatal("expected granting access to fetch the accounts")
	}
	done := make(chan struct{})
	go func() {
		cmd()
		close(done)
	}()
	<-entered

	h.m.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("expected Close to cancel the running listing")
	}
	if st := h.vm.State(); st.Status != viewmodel.Error || !errors.Is(st.Err, context.Canceled) {
		t.Errorf("expected the listing to fail with context.Canceled, got %+v", st)
	}
}

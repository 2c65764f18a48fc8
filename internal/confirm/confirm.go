// Package confirm gates a destructive action behind a countdown: the
// confirm action only becomes available Seconds ticks after the dialog was
// opened.
package confirm

import (
	"errors"
	"sync"
	"time"

	"github.com/guilherme-santos/calmanager/internal"
)

// Seconds is how long a dialog counts down before it can be confirmed.
const Seconds = 3

var ErrNotArmed = errors.New("confirm: countdown has not finished")

type State int

const (
	Closed State = iota
	Counting
	Armed
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Counting:
		return "counting"
	case Armed:
		return "armed"
	}
	return "unknown"
}

// Session identifies one opening of the dialog. Ticks carry the session they
// were scheduled for, so a tick outliving its dialog is recognised and
// dropped.
type Session uint64

type Snapshot struct {
	State     State
	Remaining int
	Session   Session
	Target    internal.Account
}

func (s Snapshot) Open() bool {
	return s.State != Closed
}

func (s Snapshot) CanConfirm() bool {
	return s.State == Armed
}

type Controller struct {
	now func() time.Time

	mu        sync.Mutex
	state     State
	remaining int
	session   Session
	target    internal.Account
	openedAt  time.Time
}

type Option func(*Controller)

// WithClock replaces time.Now, which is what Confirm measures the elapsed
// time with.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func New(opts ...Option) *Controller {
	c := &Controller{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open starts counting down for target, replacing whatever dialog was open.
func (c *Controller) Open(target internal.Account) Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session++
	c.state = Counting
	c.remaining = Seconds
	c.target = target
	c.openedAt = c.now()
	return c.snapshotLocked()
}

// Tick counts one second down for session. It reports false, changing
// nothing, when session is no longer the open one or the countdown is over.
func (c *Controller) Tick(session Session) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if session != c.session || c.state != Counting {
		return c.snapshotLocked(), false
	}
	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		c.state = Armed
	}
	return c.snapshotLocked(), true
}

func (c *Controller) Dismiss() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked()
	return c.snapshotLocked()
}

// Confirm closes the dialog and returns the account to delete. It fails
// with ErrNotArmed while counting, when closed, or if Seconds have not
// really elapsed since Open.
func (c *Controller) Confirm() (internal.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Armed {
		return internal.Account{}, ErrNotArmed
	}
	if c.now().Sub(c.openedAt) < Seconds*time.Second {
		return internal.Account{}, ErrNotArmed
	}
	target := c.target
	c.closeLocked()
	return target, nil
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.snapshotLocked()
}

func (c *Controller) closeLocked() {
	if c.state != Closed {
		// Outstanding ticks belong to the dialog being closed.
		c.session++
	}
	c.state = Closed
	c.remaining = 0
	c.target = internal.Account{}
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		State:     c.state,
		Remaining: c.remaining,
		Session:   c.session,
		Target:    c.target,
	}
}

package booking

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// CloseReason says why a modal closed.
type CloseReason string

const (
	CloseButton    CloseReason = "close-button"
	CloseBackdrop  CloseReason = "backdrop"
	CloseUnmount   CloseReason = "unmount"
	CloseConfirmed CloseReason = "confirmed"
	CloseExpired   CloseReason = "expired"
)

// ParseCloseReason accepts the reasons a visitor can trigger directly.
func ParseCloseReason(s string) (CloseReason, bool) {
	switch r := CloseReason(s); r {
	case CloseButton, CloseBackdrop:
		return r, true
	case "":
		return CloseButton, true
	}
	return "", false
}

// ModalOptions configures a Modal.
type ModalOptions struct {
	// OnClose receives the reason and the last snapshot before reset.
	OnClose func(reason CloseReason, final Snapshot)
	Logger  *zerolog.Logger
	Metrics Recorder
}

// Modal hosts a Controller. While open it holds a scroll lease on the
// page; every close path releases it.
type Modal struct {
	controller *Controller
	scroll     *PageScroll
	opts       ModalOptions

	mu sync.Mutex
	// open stays set while closing, so Open fails until teardown is done.
	open     bool
	closing  bool
	gen      uint64
	lease    *ScrollLease
	stop     func() bool
	openedAt time.Time

	lastReason CloseReason
	lastFinal  Snapshot
}

// NewModal creates a closed modal around c. The modal closes itself with
// CloseConfirmed once c confirms a booking.
func NewModal(c *Controller, scroll *PageScroll, opts ModalOptions) *Modal {
	if opts.Logger == nil {
		nop := zerolog.Nop()
		opts.Logger = &nop
	}
	if opts.Metrics == nil {
		opts.Metrics = nopRecorder{}
	}
	m := &Modal{
		controller: c,
		scroll:     scroll,
		opts:       opts,
	}
	c.OnConfirmed(func(Snapshot) { m.Close(CloseConfirmed) })
	return m
}

// Open acquires the scroll lease, preselects initialServiceID if given and
// mounts the controller. Cancelling ctx closes the modal with CloseUnmount.
func (m *Modal) Open(ctx context.Context, initialServiceID string) error {
	m.mu.Lock()
	if m.open {
		m.mu.Unlock()
		return ErrModalOpen
	}
	m.open = true
	m.gen++
	gen := m.gen
	m.lease = m.scroll.Acquire()
	m.openedAt = time.Now()
	m.mu.Unlock()

	m.opts.Metrics.ModalOpened()

	mounted := false
	defer func() {
		if !mounted {
			m.Close(CloseUnmount)
		}
	}()

	if initialServiceID != "" {
		m.controller.SelectService(initialServiceID)
	}
	m.controller.Mount(ctx)
	mounted = true

	stop := context.AfterFunc(ctx, func() { m.closeGen(gen, CloseUnmount) })
	m.mu.Lock()
	if m.open && m.gen == gen {
		m.stop = stop
		stop = nil
	}
	m.mu.Unlock()
	if stop != nil {
		stop()
	}

	m.opts.Logger.Debug().Str("service_id", initialServiceID).Msg("booking modal opened")
	return nil
}

// Close closes the modal. It reports false if the modal was not open.
func (m *Modal) Close(reason CloseReason) bool {
	m.mu.Lock()
	if !m.open || m.closing {
		m.mu.Unlock()
		return false
	}
	return m.closeLocked(reason)
}

func (m *Modal) closeGen(gen uint64, reason CloseReason) {
	m.mu.Lock()
	if !m.open || m.closing || m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.closeLocked(reason)
}

// closeLocked is entered with mu held and unlocks it. The final snapshot
// is taken and the controller reset before the modal counts as closed;
// the lease is released last.
func (m *Modal) closeLocked(reason CloseReason) bool {
	m.closing = true
	final := m.controller.Snapshot()
	m.lastReason, m.lastFinal = reason, final
	lease, stop, openedAt := m.lease, m.stop, m.openedAt
	m.lease, m.stop = nil, nil
	m.mu.Unlock()

	if stop != nil {
		stop()
	}
	m.controller.Reset()

	m.mu.Lock()
	m.open = false
	m.closing = false
	m.mu.Unlock()

	lease.Release()

	m.opts.Metrics.ModalClosed(string(reason))
	m.opts.Logger.Debug().
		Str("reason", string(reason)).
		Str("state", string(final.State)).
		Dur("open_for", time.Since(openedAt)).
		Msg("booking modal closed")

	if m.opts.OnClose != nil {
		m.opts.OnClose(reason, final)
	}
	return true
}

// Run opens the modal, runs fn and closes the modal with CloseUnmount when
// fn returns or panics, unless it was closed already.
func (m *Modal) Run(ctx context.Context, initialServiceID string, fn func(*Controller) error) error {
	if err := m.Open(ctx, initialServiceID); err != nil {
		return err
	}
	defer m.Close(CloseUnmount)
	return fn(m.controller)
}

// IsOpen reports whether the modal is open and not closing.
func (m *Modal) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open && !m.closing
}

// status returns the live snapshot while open. Once a close has begun it
// returns the reason and the snapshot captured at that close.
func (m *Modal) status() (open bool, reason CloseReason, snap Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open && !m.closing {
		return true, "", m.controller.Snapshot()
	}
	return false, m.lastReason, m.lastFinal
}

// Controller returns the hosted controller.
func (m *Modal) Controller() *Controller {
	return m.controller
}

// ScrollSuspended reports whether the host page scroll is suspended.
func (m *Modal) ScrollSuspended() bool {
	return m.scroll.Suspended()
}

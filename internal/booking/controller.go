package booking

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"bookingdesk/internal/model"
	"bookingdesk/internal/slots"

	"github.com/rs/zerolog"
)

// Options configures a Controller.
type Options struct {
	Services      ServiceLookup
	Now           func() time.Time
	WindowDays    int
	FetchTimeout  time.Duration
	SubmitTimeout time.Duration
	Logger        *zerolog.Logger
	Metrics       Recorder
}

func (o *Options) setDefaults() {
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.WindowDays <= 0 {
		o.WindowDays = slots.DefaultWindowDays
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 10 * time.Second
	}
	if o.SubmitTimeout <= 0 {
		o.SubmitTimeout = 15 * time.Second
	}
	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}
	if o.Metrics == nil {
		o.Metrics = nopRecorder{}
	}
}

type eventKind string

const (
	evMount            eventKind = "mount"
	evDateChanged      eventKind = "dateChanged"
	evFetchResolved    eventKind = "fetchResolved"
	evServiceSelected  eventKind = "serviceSelected"
	evSlotClicked      eventKind = "slotClicked"
	evConfirmRequested eventKind = "confirmRequested"
	evSubmitResolved   eventKind = "submitResolved"
	evReset            eventKind = "reset"
)

type event struct {
	kind      eventKind
	ctx       context.Context
	date      time.Time
	serviceID string
	slotID    string
	booker    Booker
	seq       uint64
	slots     []model.TimeSlot
	ok        bool
	err       error
	elapsed   time.Duration
	submitted *model.UserBooking
}

// Controller owns the selection state of one booking surface. Events are
// applied one at a time under mu; provider and submitter calls run in
// goroutines and re-enter as events tagged with the request token that
// issued them, so a superseded response never overwrites newer state.
type Controller struct {
	provider  AvailabilityProvider
	submitter BookingSubmitter
	opts      Options

	mu        sync.Mutex
	ctx       context.Context
	state     State
	serviceID string
	date      time.Time
	window    []time.Time
	slots     []model.TimeSlot
	slotID    string
	outcome   Outcome
	fetchErr  error
	submitErr error
	booking   *model.UserBooking
	fetchSeq  uint64
	submitSeq uint64
	onConfirm []func(Snapshot)

	// pending counts issued requests whose resolution has not finished.
	pending int
	settled *sync.Cond
}

// NewController creates a controller in the idle state.
func NewController(provider AvailabilityProvider, submitter BookingSubmitter, opts Options) *Controller {
	opts.setDefaults()
	c := &Controller{
		provider:  provider,
		submitter: submitter,
		opts:      opts,
		ctx:       context.Background(),
		state:     StateIdle,
		outcome:   OutcomeNone,
	}
	c.settled = sync.NewCond(&c.mu)
	return c
}

// OnConfirmed registers fn to run after a booking is confirmed. Hooks run
// outside the controller lock, in registration order.
func (c *Controller) OnConfirmed(fn func(Snapshot)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConfirm = append(c.onConfirm, fn)
}

// Mount builds the booking window, selects today and fetches its slots.
// ctx bounds all provider and submitter calls until the next Reset.
func (c *Controller) Mount(ctx context.Context) bool {
	return c.dispatch(event{kind: evMount, ctx: ctx})
}

// SelectDate chooses a date inside the window and fetches its slots.
func (c *Controller) SelectDate(date time.Time) bool {
	return c.dispatch(event{kind: evDateChanged, date: date})
}

// SelectService chooses a service from the catalog.
func (c *Controller) SelectService(id string) bool {
	return c.dispatch(event{kind: evServiceSelected, serviceID: id})
}

// ClickSlot chooses an available slot of the loaded date.
func (c *Controller) ClickSlot(id string) bool {
	return c.dispatch(event{kind: evSlotClicked, slotID: id})
}

// Confirm submits the current selection once. It returns false without
// calling the submitter when the selection is incomplete.
func (c *Controller) Confirm(booker Booker) bool {
	return c.dispatch(event{kind: evConfirmRequested, booker: booker})
}

// Reset returns to idle and invalidates every in-flight request.
func (c *Controller) Reset() {
	c.dispatch(event{kind: evReset})
}

// Wait blocks until every issued request has been resolved and its hooks
// have run. It must not be called from an OnConfirmed hook.
func (c *Controller) Wait() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pending > 0 {
		c.settled.Wait()
	}
}

func (c *Controller) done() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending--
	if c.pending == 0 {
		c.settled.Broadcast()
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		State:     c.state,
		ServiceID: c.serviceID,
		Date:      c.date,
		Window:    append([]time.Time(nil), c.window...),
		Slots:     append([]model.TimeSlot(nil), c.slots...),
		Loading:   c.state == StateLoading,
		SlotID:    c.slotID,
		Outcome:   c.outcome,
	}
	if s.Slots == nil {
		s.Slots = []model.TimeSlot{}
	}
	if c.serviceID != "" && c.opts.Services != nil {
		if svc, ok := c.opts.Services.Get(c.serviceID); ok {
			s.Service = &svc
		}
	}
	if c.fetchErr != nil {
		s.FetchError = c.fetchErr.Error()
	}
	if c.submitErr != nil {
		s.SubmitError = c.submitErr.Error()
	}
	if c.booking != nil {
		b := *c.booking
		s.Booking = &b
	}
	return s
}

func (c *Controller) dispatch(ev event) bool {
	accepted, effects := c.applyLocked(ev)
	for _, effect := range effects {
		effect()
	}
	return accepted
}

func (c *Controller) applyLocked(ev event) (bool, []func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apply(ev)
}

// apply runs with mu held. Returned effects run after the lock is dropped.
func (c *Controller) apply(ev event) (bool, []func()) {
	log := c.opts.Logger
	switch ev.kind {
	case evMount:
		if c.state != StateIdle {
			return false, nil
		}
		if ev.ctx != nil {
			c.ctx = ev.ctx
		}
		c.window = slots.Window(c.opts.Now(), c.opts.WindowDays)
		return true, c.startFetchLocked(c.window[0])

	case evDateChanged:
		switch c.state {
		case StateIdle, StateConfirming, StateConfirmed:
			return false, nil
		}
		day, ok := windowDay(c.window, ev.date)
		if !ok {
			log.Debug().Time("date", ev.date).Msg("date outside booking window ignored")
			return false, nil
		}
		return true, c.startFetchLocked(day)

	case evFetchResolved:
		if ev.seq != c.fetchSeq || c.state != StateLoading {
			c.opts.Metrics.FetchObserved(OutcomeStale, ev.elapsed)
			log.Debug().Uint64("token", ev.seq).Msg("stale availability response discarded")
			return false, nil
		}
		c.state = StateLoaded
		if ev.err != nil {
			c.opts.Metrics.FetchObserved(OutcomeError, ev.elapsed)
			log.Warn().Err(ev.err).Msg("availability fetch failed")
			c.slots = nil
			c.fetchErr = ev.err
			return true, nil
		}
		c.opts.Metrics.FetchObserved(OutcomeOK, ev.elapsed)
		c.slots = append([]model.TimeSlot(nil), ev.slots...)
		c.fetchErr = nil
		return true, nil

	case evServiceSelected:
		if ev.serviceID == "" {
			return false, nil
		}
		if c.opts.Services != nil {
			if _, ok := c.opts.Services.Get(ev.serviceID); !ok {
				return false, nil
			}
		}
		c.serviceID = ev.serviceID
		return true, nil

	case evSlotClicked:
		if c.state != StateLoaded {
			return false, nil
		}
		slot, ok := model.FindSlot(c.slots, ev.slotID)
		if !ok || !slot.Available {
			return false, nil
		}
		c.slotID = slot.ID
		return true, nil

	case evConfirmRequested:
		if c.state != StateLoaded || c.serviceID == "" {
			return false, nil
		}
		slot, ok := model.FindSlot(c.slots, c.slotID)
		if !ok || !slot.Available {
			return false, nil
		}
		if err := ev.booker.Validate(); err != nil {
			log.Debug().Err(err).Msg("confirmation with invalid booker ignored")
			return false, nil
		}
		b := model.UserBooking{
			Name:      ev.booker.Name,
			Email:     ev.booker.Email,
			ServiceID: c.serviceID,
			Date:      c.date,
			SlotID:    slot.ID,
		}
		c.state = StateConfirming
		c.submitErr = nil
		c.submitSeq++
		seq, ctx := c.submitSeq, c.ctx
		c.pending++
		return true, []func(){func() { go c.submit(ctx, seq, b) }}

	case evSubmitResolved:
		if ev.seq != c.submitSeq || c.state != StateConfirming {
			c.opts.Metrics.SubmitObserved(OutcomeStale, ev.elapsed)
			return false, nil
		}
		if ev.err == nil && !ev.ok {
			ev.err = ErrSubmissionRejected
		}
		if ev.err != nil {
			c.opts.Metrics.SubmitObserved(OutcomeError, ev.elapsed)
			log.Warn().Err(ev.err).Str("slot_id", c.slotID).Msg("booking submission failed")
			c.state = StateLoaded
			c.outcome = OutcomeFailed
			c.submitErr = &SubmissionError{SlotID: c.slotID, Err: ev.err}
			return true, nil
		}
		c.opts.Metrics.SubmitObserved(OutcomeOK, ev.elapsed)
		c.state = StateConfirmed
		c.outcome = OutcomeConfirmed
		b := *ev.submitted
		c.booking = &b
		log.Info().Str("slot_id", c.slotID).Str("service_id", c.booking.ServiceID).Msg("booking confirmed")

		snap := c.snapshotLocked()
		hooks := slices.Clone(c.onConfirm)
		effects := make([]func(), 0, len(hooks))
		for _, h := range hooks {
			effects = append(effects, func() { h(snap) })
		}
		return true, effects

	case evReset:
		c.fetchSeq++
		c.submitSeq++
		c.ctx = context.Background()
		c.state = StateIdle
		c.serviceID = ""
		c.date = time.Time{}
		c.window = nil
		c.slots = nil
		c.slotID = ""
		c.outcome = OutcomeNone
		c.fetchErr = nil
		c.submitErr = nil
		c.booking = nil
		return true, nil
	}
	return false, nil
}

// windowDay returns the window entry on date's calendar day.
func windowDay(window []time.Time, date time.Time) (time.Time, bool) {
	for _, d := range window {
		if slots.SameDay(d, date) {
			return d, true
		}
	}
	return time.Time{}, false
}

// startFetchLocked moves to loading for date and returns the effect that
// issues the provider call.
func (c *Controller) startFetchLocked(date time.Time) []func() {
	c.fetchSeq++
	c.state = StateLoading
	c.date = date
	c.slots = nil
	c.slotID = ""
	c.fetchErr = nil
	c.submitErr = nil
	if c.outcome == OutcomeFailed {
		c.outcome = OutcomeNone
	}
	seq, ctx := c.fetchSeq, c.ctx
	c.pending++
	return []func(){func() { go c.fetch(ctx, seq, date) }}
}

func (c *Controller) fetch(ctx context.Context, seq uint64, date time.Time) {
	defer c.done()
	start := time.Now()

	var (
		result []model.TimeSlot
		err    error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("provider panic: %v", r)
			}
		}()
		fctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
		defer cancel()
		result, err = c.provider.FetchSlots(fctx, date)
	}()
	if err != nil {
		result = nil
		err = &FetchError{Date: date, Err: err}
	}

	c.dispatch(event{kind: evFetchResolved, seq: seq, slots: result, err: err, elapsed: time.Since(start)})
}

func (c *Controller) submit(ctx context.Context, seq uint64, b model.UserBooking) {
	defer c.done()
	start := time.Now()

	var (
		ok  bool
		err error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("submitter panic: %v", r)
			}
		}()
		sctx, cancel := context.WithTimeout(ctx, c.opts.SubmitTimeout)
		defer cancel()
		ok, err = c.submitter.Submit(sctx, b.SlotID, b)
	}()

	c.dispatch(event{kind: evSubmitResolved, seq: seq, ok: ok, err: err, elapsed: time.Since(start), submitted: &b})
}

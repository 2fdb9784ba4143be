package booking

import "sync"

// PageScroll is the scroll state of one host page. Background scrolling is
// suspended while at least one lease is held.
type PageScroll struct {
	mu       sync.Mutex
	holders  int
	onChange func(suspended bool)
}

// NewPageScroll returns a page whose scroll is active. onChange, if set, is
// called with the new state whenever suspension starts or ends.
func NewPageScroll(onChange func(suspended bool)) *PageScroll {
	return &PageScroll{onChange: onChange}
}

// Acquire suspends page scroll until the returned lease is released.
func (p *PageScroll) Acquire() *ScrollLease {
	p.mu.Lock()
	p.holders++
	first := p.holders == 1
	p.mu.Unlock()

	if first && p.onChange != nil {
		p.onChange(true)
	}
	return &ScrollLease{page: p}
}

// Suspended reports whether any lease is held.
func (p *PageScroll) Suspended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.holders > 0
}

// Holders returns the number of outstanding leases.
func (p *PageScroll) Holders() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.holders
}

func (p *PageScroll) release() {
	p.mu.Lock()
	p.holders--
	last := p.holders == 0
	p.mu.Unlock()

	if last && p.onChange != nil {
		p.onChange(false)
	}
}

// ScrollLease is one hold on a PageScroll.
type ScrollLease struct {
	page *PageScroll
	once sync.Once
}

// Release gives the hold back. Calling it more than once has no effect.
func (l *ScrollLease) Release() {
	if l == nil {
		return
	}
	l.once.Do(l.page.release)
}

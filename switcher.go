package evdash

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Source int

const (
	SourceLive Source = iota
	SourceSimulated
)

func (s Source) String() string {
	if s == SourceSimulated {
		return "simulated"
	}
	return "live"
}

// Switcher runs at most one producer at a time. A switch stops the running
// producer before the next one starts, so two producers never write to the
// store together.
type Switcher struct {
	producers map[Source]Producer

	mu     sync.Mutex
	ctx    context.Context
	active Source
	cancel context.CancelFunc
	done   chan struct{}
}

func NewSwitcher(live, simulated Producer) *Switcher {
	return &Switcher{
		producers: map[Source]Producer{
			SourceLive:      live,
			SourceSimulated: simulated,
		},
	}
}

// Start runs the producer for src. Producers are stopped when ctx is done.
func (s *Switcher) Start(ctx context.Context, src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
	s.stopLocked()
	s.startLocked(src)
}

// StartActive is Start with the source last passed to Switch.
func (s *Switcher) StartActive(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
	s.stopLocked()
	s.startLocked(s.active)
}

// Switch runs the producer for src. A producer that already returned is
// started again.
func (s *Switcher) Switch(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.switchLocked(src)
}

// Toggle flips between the live and simulated producers and returns the new
// source.
func (s *Switcher) Toggle() Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := SourceSimulated
	if s.active == SourceSimulated {
		next = SourceLive
	}
	s.switchLocked(next)
	return next
}

func (s *Switcher) Active() Source {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Stop cancels the running producer and waits for it to return.
func (s *Switcher) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Switcher) switchLocked(src Source) {
	if s.ctx == nil {
		s.active = src
		return
	}
	if src == s.active && s.runningLocked() {
		return
	}
	s.stopLocked()
	s.startLocked(src)
}

func (s *Switcher) runningLocked() bool {
	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *Switcher) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
}

func (s *Switcher) startLocked(src Source) {
	s.active = src
	p := s.producers[src]
	if p == nil {
		log.WithField("source", src).Warn("no producer for source")
		return
	}
	if s.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	logger := log.WithField("producer", p.Name()).WithField("source", src)
	logger.Info("starting producer")
	go func() {
		defer close(done)
		err := p.Run(ctx)
		if err != nil && errors.Cause(err) != context.Canceled {
			// the display keeps its last values
			logger.WithError(err).Error("producer terminated")
			return
		}
		logger.Info("producer stopped")
	}()
}

package badge

import (
	"context"
	"sync"
	"time"

	"github.com/burakmert236/courtside/common/logger"
)

const applyTimeout = 5 * time.Second

// Sink is where badge numbers end up.
type Sink interface {
	Authorized(ctx context.Context, userId string) (bool, error)
	SetBadge(ctx context.Context, userId string, count int) error
}

// Publisher owns the badge of one signed-in user. Publish never blocks:
// bursts collapse into the latest value, which a single worker applies.
type Publisher struct {
	userId string
	sink   Sink
	logger *logger.Logger

	mu      sync.Mutex
	pending int
	dirty   bool
	epoch   uint64
	started bool
	stopped bool

	// applyMu serializes writes to the sink between the worker and Reset.
	applyMu sync.Mutex

	signal   chan struct{}
	stopChan chan struct{}
	done     chan struct{}
	once     sync.Once
}

func NewPublisher(userId string, sink Sink, log *logger.Logger) *Publisher {
	return &Publisher{
		userId:   userId,
		sink:     sink,
		logger:   log.With("component", "badge_publisher", "user_id", userId),
		signal:   make(chan struct{}, 1),
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (p *Publisher) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	go p.run()
}

// Publish records total as the value the badge should show.
func (p *Publisher) Publish(total int) {
	if total < 0 {
		total = 0
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.pending = total
	p.dirty = true
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
	}
}

// Reset sets the badge to 0 right away. Values published before the reset
// and not applied yet are dropped.
func (p *Publisher) Reset(ctx context.Context) error {
	p.mu.Lock()
	p.epoch++
	p.dirty = false
	p.mu.Unlock()

	p.applyMu.Lock()
	defer p.applyMu.Unlock()
	return p.apply(ctx, 0)
}

// Stop applies the pending value, if any, and stops the worker.
func (p *Publisher) Stop() {
	p.once.Do(func() {
		p.mu.Lock()
		p.stopped = true
		started := p.started
		p.mu.Unlock()
		close(p.stopChan)
		if !started {
			p.flush()
			close(p.done)
		}
	})
	<-p.done
}

func (p *Publisher) run() {
	defer close(p.done)

	for {
		select {
		case <-p.signal:
			p.flush()
		case <-p.stopChan:
			p.flush()
			return
		}
	}
}

func (p *Publisher) flush() {
	p.mu.Lock()
	if !p.dirty {
		p.mu.Unlock()
		return
	}
	value, epoch := p.pending, p.epoch
	p.dirty = false
	p.mu.Unlock()

	p.applyMu.Lock()
	defer p.applyMu.Unlock()

	p.mu.Lock()
	stale := epoch != p.epoch
	p.mu.Unlock()
	if stale {
		p.logger.Debug("dropping badge value published before reset", "value", value)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), applyTimeout)
	defer cancel()

	if err := p.apply(ctx, value); err != nil {
		p.logger.Warn("failed to apply badge", "value", value, "error", err)
	}
}

func (p *Publisher) apply(ctx context.Context, value int) error {
	authorized, err := p.sink.Authorized(ctx, p.userId)
	if err != nil {
		return err
	}
	if !authorized {
		p.logger.Debug("badge not authorized, skipping", "value", value)
		return nil
	}

	if err := p.sink.SetBadge(ctx, p.userId, value); err != nil {
		return err
	}

	p.logger.Debug("badge applied", "value", value)
	return nil
}

package listener

import (
	"context"
	"sync"

	"github.com/burakmert236/courtside/common/logger"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

// Subscription delivers full result sets: one on start and one after every
// change notification or Restart. A slow consumer only ever sees the newest
// snapshot.
type Subscription[T any] struct {
	fetch   FetchFunc[T]
	changes <-chan struct{}
	restart chan struct{}
	out     chan T
	logger  *logger.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Watch starts fetching right away. The subscription ends when ctx is done
// or Close is called; C is closed afterwards.
func Watch[T any](ctx context.Context, changes <-chan struct{}, fetch FetchFunc[T], log *logger.Logger) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		fetch:   fetch,
		changes: changes,
		restart: make(chan struct{}, 1),
		out:     make(chan T, 1),
		logger:  log,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go s.run(ctx)
	return s
}

func (s *Subscription[T]) C() <-chan T {
	return s.out
}

// Restart forces a fresh fetch.
func (s *Subscription[T]) Restart() {
	select {
	case s.restart <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

func (s *Subscription[T]) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.out)

	changes := s.changes
	s.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			s.refresh(ctx)
		case <-s.restart:
			s.refresh(ctx)
		}
	}
}

func (s *Subscription[T]) refresh(ctx context.Context) {
	snapshot, err := s.fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("snapshot fetch failed, waiting for next change", "error", err)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}

	select {
	case s.out <- snapshot:
	default:
		select {
		case <-s.out:
		default:
		}
		s.out <- snapshot
	}
}

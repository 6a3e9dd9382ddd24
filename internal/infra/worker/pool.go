// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

type Task func(ctx context.Context) error

// ShardedPool runs tasks on a fixed set of lanes. Tasks submitted with the
// same key always land on the same lane, so events for one sender are
// processed in arrival order while different senders run concurrently.
type ShardedPool struct {
	wg     sync.WaitGroup
	lanes  []chan Task
	quit   chan struct{}
	logger *zerolog.Logger
}

func NewShardedPool(lanes int, logger *zerolog.Logger) *ShardedPool {
	if lanes <= 0 {
		lanes = 8
	}
	p := &ShardedPool{
		lanes:  make([]chan Task, lanes),
		quit:   make(chan struct{}),
		logger: logger,
	}
	for i := range p.lanes {
		p.lanes[i] = make(chan Task, 32)
	}
	return p
}

func (p *ShardedPool) Start(ctx context.Context) {
	for i, ch := range p.lanes {
		p.wg.Add(1)
		go func(lane int, jobs <-chan Task) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-jobs:
					if task == nil {
						continue
					}
					if err := task(ctx); err != nil {
						p.logger.Error().Int("lane", lane).Err(err).Msg("task error")
					}
				}
			}
		}(i, ch)
	}
}

func (p *ShardedPool) Stop() {
	close(p.quit)
	p.wg.Wait()
}

// Submit enqueues task on the lane for key. Saturated lanes reject instead of
// blocking the caller.
func (p *ShardedPool) Submit(key int64, task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	lane := p.lanes[uint64(key)%uint64(len(p.lanes))]
	select {
	case lane <- task:
		return nil
	default:
		return errors.New("worker lane full")
	}
}

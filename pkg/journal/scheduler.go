// Copyright 2025 Basis Protocol

package journal

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/basistracker/core/pkg/authtree"
)

// Scheduler drives the periodic Checkpoints spec §4.6 calls for: one
// every CheckpointEvery (wall-clock) and one every CheckpointEveryOps
// operations, whichever comes first. Grounded on commitment.Publisher's
// ticker-driven Start(ctx)/Stop() shape (pkg/commitment/publisher.go),
// generalized with an additional NoteOp trigger since, unlike the
// commitment tick, checkpointing also has an operation-count threshold.
type Scheduler struct {
	log      *Log
	tree     *authtree.Tree
	everyOps int
	interval time.Duration

	mu       sync.Mutex
	opsSince int

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewScheduler constructs a Scheduler over log and tree. everyOps <= 0
// disables the operation-count trigger; interval <= 0 disables the
// wall-clock trigger.
func NewScheduler(log *Log, tree *authtree.Tree, everyOps int, interval time.Duration) *Scheduler {
	return &Scheduler{
		log:      log,
		tree:     tree,
		everyOps: everyOps,
		interval: interval,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the wall-clock ticker loop in its own goroutine, mirroring
// commitment.Publisher.Start. A no-op if interval is disabled.
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		close(s.done)
		return
	}
	go s.loop(ctx)
}

// Stop halts the ticker loop and blocks until it exits.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.checkpoint()
		}
	}
}

// NoteOp is called after every journal Append; once CheckpointEveryOps
// operations have accumulated since the last checkpoint (by either
// trigger), it takes one immediately and resets the counter.
func (s *Scheduler) NoteOp() {
	if s.everyOps <= 0 {
		return
	}
	s.mu.Lock()
	s.opsSince++
	due := s.opsSince >= s.everyOps
	if due {
		s.opsSince = 0
	}
	s.mu.Unlock()
	if due {
		s.checkpoint()
	}
}

func (s *Scheduler) checkpoint() {
	s.mu.Lock()
	s.opsSince = 0
	s.mu.Unlock()
	if _, err := s.log.Checkpoint(s.tree, uint64(time.Now().Unix()), true); err != nil {
		log.Printf("[journal] checkpoint failed: %v", err)
	}
}

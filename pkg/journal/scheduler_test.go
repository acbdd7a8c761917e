// Copyright 2025 Basis Protocol

package journal

import (
	"context"
	"testing"
	"time"

	"github.com/basistracker/core/pkg/authtree"
)

func TestSchedulerNoteOpCheckpointsAfterThreshold(t *testing.T) {
	log, _ := newMemLog()
	tree := authtree.New()
	sched := NewScheduler(log, tree, 3, 0)

	for i := byte(0); i < 2; i++ {
		if _, err := tree.Update(keyFromByte(i), valueFromUint64(uint64(i))); err != nil {
			t.Fatalf("update: %v", err)
		}
		for _, op := range tree.Prove() {
			if err := log.Append(op); err != nil {
				t.Fatalf("append: %v", err)
			}
		}
		sched.NoteOp()
	}

	m, err := log.loadMeta()
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if len(m.CheckpointIDs) != 0 {
		t.Fatalf("len(checkpoint_ids) = %d, want 0 before threshold is reached", len(m.CheckpointIDs))
	}

	if _, err := tree.Update(keyFromByte(2), valueFromUint64(2)); err != nil {
		t.Fatalf("update: %v", err)
	}
	for _, op := range tree.Prove() {
		if err := log.Append(op); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	sched.NoteOp()

	m, err = log.loadMeta()
	if err != nil {
		t.Fatalf("load meta: %v", err)
	}
	if len(m.CheckpointIDs) != 1 {
		t.Fatalf("len(checkpoint_ids) = %d, want 1 once the 3rd op lands", len(m.CheckpointIDs))
	}
}

func TestSchedulerStartStopWithoutInterval(t *testing.T) {
	log, _ := newMemLog()
	tree := authtree.New()
	sched := NewScheduler(log, tree, 0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)
	sched.Stop()
}

func TestSchedulerTicksOnInterval(t *testing.T) {
	log, _ := newMemLog()
	tree := authtree.New()
	if _, err := tree.Update(keyFromByte(0), valueFromUint64(1)); err != nil {
		t.Fatalf("update: %v", err)
	}
	for _, op := range tree.Prove() {
		if err := log.Append(op); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	sched := NewScheduler(log, tree, 0, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)

	deadline := time.After(2 * time.Second)
	for {
		m, err := log.loadMeta()
		if err != nil {
			t.Fatalf("load meta: %v", err)
		}
		if len(m.CheckpointIDs) > 0 {
			break
		}
		select {
		case <-deadline:
			cancel()
			sched.Stop()
			t.Fatal("scheduler never checkpointed on its interval")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	sched.Stop()
}

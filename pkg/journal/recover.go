// Copyright 2025 Basis Protocol

package journal

import (
	"encoding/json"
	"fmt"

	"github.com/basistracker/core/pkg/authtree"
)

// Recover reconstructs the in-memory AuthTree per spec §4.6: load the
// latest checkpoint (start from empty if none), replay every operation
// with seq greater than the checkpoint's LastSeqIncluded in order, and
// verify the resulting root matches the last replayed operation's
// RootAfter. A mismatch is fatal (ErrCorruptJournal; cmd/tracker maps
// this to exit code 2 per spec §6.6).
func (l *Log) Recover() (*authtree.Tree, error) {
	m, err := l.loadMeta()
	if err != nil {
		return nil, err
	}

	var tree *authtree.Tree
	var fromSeq uint64

	if len(m.CheckpointIDs) == 0 {
		tree = authtree.New()
		fromSeq = 0
	} else {
		latestID := m.CheckpointIDs[len(m.CheckpointIDs)-1]
		cp, err := l.loadCheckpoint(latestID)
		if err != nil {
			return nil, err
		}
		if cp.Entries != nil {
			entries := make(map[authtree.Key]authtree.Value, len(cp.Entries))
			for hexK, v := range cp.Entries {
				k, err := keyFromHex(hexK)
				if err != nil {
					return nil, fmt.Errorf("journal: corrupt checkpoint %s: %w", cp.ID, err)
				}
				entries[k] = v
			}
			tree = authtree.LoadSnapshot(entries)
			if tree.Root() != cp.TreeRoot {
				return nil, fmt.Errorf("%w: checkpoint %s snapshot root mismatch", ErrCorruptJournal, cp.ID)
			}
		} else {
			// No embedded snapshot: fall back to replaying the whole
			// journal from empty, since this module always retains every
			// operation (compact() only prunes checkpoints, not ops).
			tree = authtree.New()
			return l.replayFrom(tree, 0, m.NextSeq)
		}
		// cp.LastSeqIncluded is -1 when the checkpoint predates any
		// appended operation ("zero ops included"); +1 then correctly
		// yields fromSeq = 0, replaying everything instead of skipping
		// the real operation at seq 0.
		fromSeq = uint64(cp.LastSeqIncluded + 1)
	}

	return l.replayFrom(tree, fromSeq, m.NextSeq)
}

func (l *Log) replayFrom(tree *authtree.Tree, fromSeq, nextSeq uint64) (*authtree.Tree, error) {
	var lastRootAfter authtree.Root
	replayed := false

	for seq := fromSeq; seq < nextSeq; seq++ {
		raw, err := l.store.Get(opKey(seq))
		if err != nil {
			return nil, fmt.Errorf("journal: read operation %d: %w", seq, err)
		}
		if len(raw) == 0 {
			return nil, fmt.Errorf("%w: missing operation %d", ErrCorruptJournal, seq)
		}
		_, op, err := decodeOperation(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptJournal, err)
		}
		if _, err := tree.Update(op.Key, op.NewValue); err != nil {
			return nil, fmt.Errorf("journal: replay operation %d: %w", seq, err)
		}
		tree.Prove() // discard: replay must not re-accumulate a pending batch
		lastRootAfter = op.RootAfter
		replayed = true
	}

	if replayed && tree.Root() != lastRootAfter {
		return nil, fmt.Errorf("%w: recomputed root does not match recorded root_after", ErrCorruptJournal)
	}
	return tree, nil
}

func (l *Log) loadCheckpoint(id string) (*Checkpoint, error) {
	raw, err := l.store.Get(checkpointKey(id))
	if err != nil {
		return nil, fmt.Errorf("journal: read checkpoint %s: %w", id, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: checkpoint %s missing", ErrCorruptJournal, id)
	}
	var cp Checkpoint
	if err := json.Unmarshal(raw, &cp); err != nil {
		return nil, fmt.Errorf("%w: checkpoint %s unreadable: %v", ErrCorruptJournal, id, err)
	}
	return &cp, nil
}

func keyFromHex(s string) (authtree.Key, error) {
	var k authtree.Key
	if len(s) != authtree.KeySize*2 {
		return k, fmt.Errorf("bad key length")
	}
	for i := 0; i < authtree.KeySize; i++ {
		hi, err := hexNibble(s[i*2])
		if err != nil {
			return k, err
		}
		lo, err := hexNibble(s[i*2+1])
		if err != nil {
			return k, err
		}
		k[i] = hi<<4 | lo
	}
	return k, nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	default:
		return 0, fmt.Errorf("bad hex digit %q", c)
	}
}

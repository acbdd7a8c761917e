// Copyright 2025 Basis Protocol
//
// CommitmentPublisher, spec §4.5: a periodic ticker that snapshots
// TrackerState.StateCommitment(), skips the tick if the snapshot hasn't
// changed since the last successful publish, and otherwise builds an
// unsigned transaction carrying the new R4/R5/R6 registers and hands it
// to a HostChainClient. Grounded on the donor's AnchorSchedulerService
// (pkg/anchor/scheduler.go): a config struct, a Start(ctx)/Stop() pair,
// and a goroutine driven by a time.Ticker selecting against ctx.Done()
// and an internal stop channel. None of the donor's batching/pricing-tier
// machinery carries over — a commitment publisher has exactly one
// pending "batch" (the current root) at a time, so that structure has
// no analogue here.
package commitment

import (
	"context"
	"encoding/binary"
	"log"
	"sync"
	"time"

	"github.com/basistracker/core/pkg/authtree"
	"github.com/basistracker/core/pkg/external"
	"github.com/basistracker/core/pkg/metrics"
)

// DefaultTickInterval is the 600-second default tick spec §4.5 fixes.
const DefaultTickInterval = 600 * time.Second

// StateSource is the read-only slice of TrackerState CommitmentPublisher
// depends on. Declared here rather than imported from pkg/ledger so this
// package has no compile-time dependency on the coordinator's full API.
type StateSource interface {
	StateCommitment() ([]byte, authtree.Root)
}

// Publisher runs the periodic commitment tick described in spec §4.5.
type Publisher struct {
	state    StateSource
	nftID    []byte
	client   external.HostChainClient
	interval time.Duration
	metrics  *metrics.Registry

	mu          sync.Mutex
	lastPubKey  []byte
	lastRoot    authtree.Root
	havePublish bool

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewPublisher constructs a Publisher. nftID is the tracker-NFT id
// carried unchanged in R6 on every publish, per spec §6.3.
func NewPublisher(state StateSource, nftID []byte, client external.HostChainClient, interval time.Duration, m *metrics.Registry) *Publisher {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Publisher{
		state:    state,
		nftID:    nftID,
		client:   client,
		interval: interval,
		metrics:  m,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the tick loop in its own goroutine. It returns
// immediately; call Stop (or cancel ctx) to halt the loop.
func (p *Publisher) Start(ctx context.Context) {
	go p.loop(ctx)
}

// Stop halts the tick loop and blocks until the in-flight tick, if any,
// finishes.
func (p *Publisher) Stop() {
	p.stopOnce.Do(func() { close(p.stopChan) })
	<-p.done
}

func (p *Publisher) loop(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopChan:
			return
		case <-ticker.C:
			if err := p.tick(ctx); err != nil {
				log.Printf("[commitment] publish tick failed: %v", err)
			}
		}
	}
}

// tick performs one iteration of the spec §4.5 algorithm: snapshot,
// skip-if-unchanged, build, submit.
func (p *Publisher) tick(ctx context.Context) error {
	pubKey, root := p.state.StateCommitment()

	p.mu.Lock()
	unchanged := p.havePublish && bytesEqual(p.lastPubKey, pubKey) && p.lastRoot == root
	p.mu.Unlock()
	if unchanged {
		return nil
	}

	p.metrics.CommitAttempt()

	tx := buildCommitmentTx(pubKey, root, p.nftID)
	if _, err := p.client.Submit(ctx, tx); err != nil {
		return err
	}

	p.mu.Lock()
	p.lastPubKey = pubKey
	p.lastRoot = root
	p.havePublish = true
	p.mu.Unlock()

	p.metrics.CommitSuccess()
	log.Printf("[commitment] published root generation for pubkey %x, commitment %s", pubKey, HashHex(pubKey, root.Bytes(), p.nftID))
	return nil
}

// buildCommitmentTx assembles the unsigned transaction body spec §4.5/§6.3
// describes: R4 = tracker pubkey, R5 = the 33-byte AVL root digest, R6 =
// the tracker-NFT id. The concrete register encoding is a length-prefixed
// concatenation; the host-chain client that ultimately signs and submits
// the transaction is responsible for translating this into the chain's
// native register/ErgoTree encoding (out of scope here, per spec §1).
func buildCommitmentTx(pubKey []byte, root authtree.Root, nftID []byte) *external.UnsignedTx {
	var buf []byte
	buf = appendRegister(buf, pubKey)
	buf = appendRegister(buf, root.Bytes())
	buf = appendRegister(buf, nftID)
	return &external.UnsignedTx{Payload: buf}
}

func appendRegister(buf []byte, field []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(field)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, field...)
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

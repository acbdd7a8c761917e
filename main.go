// Copyright 2025 Basis Protocol
//
// cmd/tracker wiring: load configuration, open the note store, replay the
// journal into an in-memory AuthTree, construct the TrackerState
// coordinator, and start the CommitmentPublisher loop. This file contains
// no business logic of its own, the same role the donor's main.go plays
// for the validator service it wires together.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/basistracker/core/pkg/authtree"
	"github.com/basistracker/core/pkg/commitment"
	"github.com/basistracker/core/pkg/config"
	"github.com/basistracker/core/pkg/database"
	"github.com/basistracker/core/pkg/external"
	"github.com/basistracker/core/pkg/hostchain"
	"github.com/basistracker/core/pkg/kv"
	"github.com/basistracker/core/pkg/kvdb"
	"github.com/basistracker/core/pkg/ledger"
	"github.com/basistracker/core/pkg/metrics"
	"github.com/basistracker/core/pkg/redemption"
	"github.com/basistracker/core/pkg/schnorr"

	"github.com/basistracker/core/pkg/journal"
)

// checkpointingJournal wraps a *journal.Log so every Append it records
// also notifies a journal.Scheduler, giving the scheduler's
// CheckpointEveryOps trigger something to count against.
type checkpointingJournal struct {
	*journal.Log
	sched *journal.Scheduler
}

func (c *checkpointingJournal) Append(op authtree.TreeOperation) error {
	if err := c.Log.Append(op); err != nil {
		return err
	}
	c.sched.NoteOp()
	return nil
}

// exitConfig and exitJournalCorrupt are the two non-zero exit codes spec
// §6.6 fixes: 1 for a configuration error (most notably a missing
// host-chain endpoint), 2 for a corrupt journal discovered on recovery.
const (
	exitOK             = 0
	exitConfig         = 1
	exitJournalCorrupt = 2
)

func main() {
	help := flag.Bool("help", false, "print usage and exit")
	flag.Parse()
	if *help {
		flag.Usage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Printf("[tracker] failed to load configuration: %v", err)
		os.Exit(exitConfig)
	}
	if err := cfg.Validate(); err != nil {
		log.Printf("[tracker] invalid configuration: %v", err)
		os.Exit(exitConfig)
	}

	if err := run(cfg); err != nil {
		log.Printf("[tracker] fatal: %v", err)
		if errors.Is(err, journal.ErrCorruptJournal) {
			os.Exit(exitJournalCorrupt)
		}
		os.Exit(exitConfig)
	}
	os.Exit(exitOK)
}

func run(cfg *config.Config) error {
	m := metrics.New()

	store, notes, closeStore, err := openStores(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	log.Printf("[tracker] recovering journal from %s backend", cfg.StoreBackend)
	j := journal.New(store)
	j.SetKeepCheckpoints(cfg.CheckpointKeepCount)
	start := time.Now()
	tree, err := j.Recover()
	if err != nil {
		return err
	}
	m.ObserveReplayDuration(time.Since(start))
	log.Printf("[tracker] journal recovered in %s, root %x", time.Since(start), tree.Root())

	checkpointSched := journal.NewScheduler(j, tree, cfg.CheckpointEveryOps, cfg.CheckpointEvery)
	trackerJournal := &checkpointingJournal{Log: j, sched: checkpointSched}

	signer := schnorr.NewKeyManager(cfg.TrackerKeyPath)
	if err := signer.LoadOrGenerate(); err != nil {
		return fmt.Errorf("load or generate tracker key: %w", err)
	}
	log.Printf("[tracker] signing key ready, public key %x", signer.PublicKey().Bytes())

	nftID, err := hex.DecodeString(cfg.TrackerNFTID)
	if err != nil {
		return fmt.Errorf("invalid TRACKER_NFT_ID: %w", err)
	}

	tracker := ledger.NewTrackerState(tree, notes, trackerJournal, signer)
	tracker.SetMetrics(m)
	tracker.SetSkewSeconds(cfg.SkewSeconds)

	// RedemptionEngine is constructed here so that cmd/tracker owns the
	// wiring a future RPC/wire-protocol front end would call into; this
	// module's external-facing transport is out of scope (spec §1), so
	// the engine is built but never driven without one.
	_ = redemption.NewEngine(tracker)

	hostChainClient, err := newHostChainClient(cfg)
	if err != nil {
		return fmt.Errorf("host chain client: %w", err)
	}

	publisher := commitment.NewPublisher(tracker, nftID, hostChainClient, cfg.CommitTickInterval, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	publisher.Start(ctx)
	log.Printf("[tracker] commitment publisher started, tick interval %s", cfg.CommitTickInterval)
	checkpointSched.Start(ctx)
	log.Printf("[tracker] checkpoint scheduler started, every %d ops or %s", cfg.CheckpointEveryOps, cfg.CheckpointEvery)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("[tracker] received signal %s, shutting down", sig)

	cancel()
	publisher.Stop()
	checkpointSched.Stop()
	log.Printf("[tracker] shutdown complete")
	return nil
}

// newHostChainClient builds the external.HostChainClient the
// CommitmentPublisher submits against. cfg.HostChainEndpoint is
// required by Validate(), so this never runs against an empty endpoint.
func newHostChainClient(cfg *config.Config) (external.HostChainClient, error) {
	return hostchain.New(cfg.HostChainEndpoint), nil
}

// openStores wires the note index and the abstract kv.Store the journal
// runs against, per cfg.StoreBackend. The embedded backend uses one
// cometbft-db handle for both the journal and the note index; the
// postgres backend uses a *database.Client for notes and a separate
// embedded handle for the journal, since the journal's key/value shape
// has no natural relational schema.
func openStores(cfg *config.Config) (kv.Store, ledger.NoteBackend, func(), error) {
	journalDB, err := kvdb.Open("journal", "goleveldb", cfg.DataDir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open embedded journal store: %w", err)
	}

	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		client, err := database.NewClient(cfg)
		if err != nil {
			journalDB.Close()
			return nil, nil, nil, fmt.Errorf("open postgres client: %w", err)
		}
		if err := client.MigrateUp(context.Background()); err != nil {
			journalDB.Close()
			return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		notes := database.NewNoteStore(client)
		closeFn := func() {
			journalDB.Close()
		}
		return journalDB, notes, closeFn, nil

	default: // config.StoreBackendEmbedded
		notesDB, err := kvdb.Open("notes", "goleveldb", cfg.DataDir)
		if err != nil {
			journalDB.Close()
			return nil, nil, nil, fmt.Errorf("open embedded note store: %w", err)
		}
		notes := ledger.NewNoteStore(notesDB)
		closeFn := func() {
			journalDB.Close()
			notesDB.Close()
		}
		return journalDB, notes, closeFn, nil
	}
}

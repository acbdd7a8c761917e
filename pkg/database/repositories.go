// Copyright 2025 Basis Protocol
//
// NoteStore is the Postgres-backed alternative to pkg/ledger's default
// cometbft-db-backed note index, implementing the same Get/Put-by-
// NoteKey shape so TrackerState can be constructed over either one.
// Adapted from the donor's repository-over-Client pattern
// (pkg/database/repositories.go): a small struct wrapping *Client,
// exposing typed accessors rather than raw SQL at call sites. None of
// the donor's batch/anchor/proof/attestation repository types survive:
// this tracker has exactly one persisted entity, the debt note.

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/basistracker/core/pkg/ledger"
	"github.com/basistracker/core/pkg/principal"
)

// NoteStore persists ledger.Note records in Postgres, keyed by
// principal.NoteKey, mirroring pkg/ledger.NoteStore's Get/Put contract.
type NoteStore struct {
	client *Client
}

// NewNoteStore wraps a *Client as a Postgres-backed note store. Callers
// must have already run Client.MigrateUp once per deployment.
func NewNoteStore(client *Client) *NoteStore {
	return &NoteStore{client: client}
}

// Get returns the note for the given NoteKey, or ledger.ErrNoteNotFound
// if none exists (the same sentinel pkg/ledger's own NoteStore returns).
func (s *NoteStore) Get(key principal.NoteKey) (*ledger.Note, error) {
	ctx := context.Background()
	row := s.client.QueryRowContext(ctx,
		`SELECT issuer, recipient, total_debt, timestamp, issuer_sig, tracker_sig
		 FROM notes WHERE note_key = $1`, key[:])

	var n ledger.Note
	var issuer, recipient, issuerSig, trackerSig []byte
	err := row.Scan(&issuer, &recipient, &n.TotalDebt, &n.Timestamp, &issuerSig, &trackerSig)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database: query note: %w", err)
	}
	if len(issuer) != principal.KeySize || len(recipient) != principal.KeySize {
		return nil, fmt.Errorf("database: stored note has malformed principal key")
	}
	if len(issuerSig) != 65 || len(trackerSig) != 65 {
		return nil, fmt.Errorf("database: stored note has malformed signature")
	}
	copy(n.Issuer[:], issuer)
	copy(n.Recipient[:], recipient)
	copy(n.IssuerSig[:], issuerSig)
	copy(n.TrackerSig[:], trackerSig)
	return &n, nil
}

// Put upserts note under key.
func (s *NoteStore) Put(key principal.NoteKey, note *ledger.Note) error {
	ctx := context.Background()
	_, err := s.client.ExecContext(ctx, `
		INSERT INTO notes (note_key, issuer, recipient, total_debt, timestamp, issuer_sig, tracker_sig, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (note_key) DO UPDATE SET
			total_debt = EXCLUDED.total_debt,
			timestamp = EXCLUDED.timestamp,
			issuer_sig = EXCLUDED.issuer_sig,
			tracker_sig = EXCLUDED.tracker_sig,
			updated_at = now()`,
		key[:], note.Issuer[:], note.Recipient[:], note.TotalDebt, note.Timestamp,
		note.IssuerSig[:], note.TrackerSig[:])
	if err != nil {
		return fmt.Errorf("database: upsert note: %w", err)
	}
	return nil
}

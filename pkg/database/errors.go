// Copyright 2025 Basis Protocol
//
// Package database provides sentinel errors for the Postgres NoteStore
// backend, following the donor's one-sentinel-per-failure-mode
// convention (pkg/database/errors.go): explicit errors instead of
// nil, nil returns.

package database

import "errors"

// ErrNotFound is this package's generic not-found sentinel. NoteStore.Get
// does not return it: a missing note is reported as ledger.ErrNoteNotFound.
var ErrNotFound = errors.New("entity not found")

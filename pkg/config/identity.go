// Copyright 2025 Basis Protocol
//
// On-disk tracker identity/peer file, loaded via gopkg.in/yaml.v3. This
// is the one piece of configuration spec §3 AMBIENT STACK calls out as
// YAML rather than environment-variable driven: the tracker's own
// display metadata and the set of reserve boxes it is willing to serve
// redemptions for, both of which are naturally structured/nested data
// rather than flat scalars.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Identity describes this tracker instance for operator-facing tooling
// and for the set of reserves it's configured to know about at startup
// (the scanner subsequently keeps these up to date; this file only seeds
// the initial set).
type Identity struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Reserves    []ReserveEntry `yaml:"reserves,omitempty"`
}

// ReserveEntry is one statically-configured reserve binding.
type ReserveEntry struct {
	OwnerPubKeyHex string `yaml:"owner_pubkey"`
	BoxIDHex       string `yaml:"box_id"`
}

// LoadIdentity reads and parses the YAML identity file at path. An empty
// path is not an error: it returns a zero-value Identity, since the
// identity file itself is optional (spec's Non-goals exclude "packaging"
// as a feature, not the right to skip parsing entirely when a library is
// the idiomatic way to do it).
func LoadIdentity(path string) (*Identity, error) {
	if path == "" {
		return &Identity{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read identity file: %w", err)
	}
	var id Identity
	if err := yaml.Unmarshal(data, &id); err != nil {
		return nil, fmt.Errorf("parse identity file: %w", err)
	}
	return &id, nil
}

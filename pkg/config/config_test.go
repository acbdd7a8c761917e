// Copyright 2025 Basis Protocol

package config

import "testing"

func TestValidateRequiresHostChainEndpoint(t *testing.T) {
	cfg := &Config{
		StoreBackend:       StoreBackendEmbedded,
		TrackerNFTID:       "aabbcc",
		CommitTickInterval: 1,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for missing HOST_CHAIN_ENDPOINT")
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := &Config{
		HostChainEndpoint:  "http://localhost:9053",
		StoreBackend:       StoreBackendEmbedded,
		TrackerNFTID:       "aabbcc",
		CommitTickInterval: 1,
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestValidateRequiresDBNameForPostgres(t *testing.T) {
	cfg := &Config{
		HostChainEndpoint:  "http://localhost:9053",
		StoreBackend:       StoreBackendPostgres,
		TrackerNFTID:       "aabbcc",
		CommitTickInterval: 1,
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected validation error for postgres backend with no DB_NAME")
	}
}

func TestLoadIdentityEmptyPath(t *testing.T) {
	id, err := LoadIdentity("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Name != "" || len(id.Reserves) != 0 {
		t.Fatalf("expected zero-value identity for empty path, got %+v", id)
	}
}

// Package filestore persists probe records as one JSON file per token
// address. A rerun for the same token overwrites the previous file; the
// latest completed run wins.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

// subdir is the directory, under the configured data root, holding the
// record files.
const subdir = "honeypot_timer_flow"

// Store implements domain.RecordStore on the local filesystem.
type Store struct {
	dir string
}

// Open creates the record directory and returns a ready Store.
func Open(root string) (*Store, error) {
	dir := filepath.Join(root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filestore: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the record to its token's file, replacing any previous
// record for that address. The write goes through a temp file and rename
// so readers never observe a torn record.
func (s *Store) Save(_ context.Context, rec *domain.ProbeRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("filestore: encode record for %s: %w", rec.TokenAddress.Hex(), err)
	}

	path := s.path(rec.TokenAddress)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("filestore: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("filestore: rename %s: %w", path, err)
	}
	return nil
}

// Load reads the record for a token. domain.ErrNotFound is returned when
// no record exists.
func (s *Store) Load(_ context.Context, token common.Address) (*domain.ProbeRecord, error) {
	data, err := os.ReadFile(s.path(token))
	if os.IsNotExist(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("filestore: read record for %s: %w", token.Hex(), err)
	}

	var rec domain.ProbeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("filestore: decode record for %s: %w", token.Hex(), err)
	}
	return &rec, nil
}

// List returns the token addresses with persisted records.
func (s *Store) List(_ context.Context) ([]common.Address, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("filestore: list %s: %w", s.dir, err)
	}

	var addrs []common.Address
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		hexAddr := strings.TrimSuffix(name, ".json")
		if !common.IsHexAddress(hexAddr) {
			continue
		}
		addrs = append(addrs, common.HexToAddress(hexAddr))
	}
	return addrs, nil
}

// Dir returns the record directory, used by the archiver.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(token common.Address) string {
	return filepath.Join(s.dir, token.Hex()+".json")
}

// Compile-time interface check.
var _ domain.RecordStore = (*Store)(nil)

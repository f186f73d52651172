// Package logbook manages per-token append-only audit logs. Each pipeline
// run writes its full trail to a log file keyed by token address; the
// cleanup policy decides at run end whether that file is kept for
// operator review or deleted.
package logbook

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// subdir is the directory, under the configured log root, holding the
// per-token logs and the shared error log.
const subdir = "honeypot_timer_flow"

// entry is one open per-token log file.
type entry struct {
	file   *os.File
	logger *slog.Logger
}

// Book is an explicit registry mapping token address to an open log
// handle. Open is idempotent per address and all lifecycle operations
// are serialized per key, so two racing runs for the same token never
// hold overlapping handles to the same file.
type Book struct {
	dir   string
	level slog.Leveler

	mu   sync.Mutex
	open map[common.Address]*entry

	sharedFile *os.File
	shared     *slog.Logger
}

// Open creates the log directory, opens the shared error log, and returns
// a ready Book.
func Open(root string, level slog.Leveler) (*Book, error) {
	dir := filepath.Join(root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logbook: mkdir %s: %w", dir, err)
	}

	sharedPath := filepath.Join(dir, "general_errors.log")
	f, err := os.OpenFile(sharedPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logbook: open shared log: %w", err)
	}

	return &Book{
		dir:        dir,
		level:      level,
		open:       make(map[common.Address]*entry),
		sharedFile: f,
		shared:     slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level})),
	}, nil
}

// Shared returns the error log for events that have no token-scoped log,
// such as identification failures and persistence failures.
func (b *Book) Shared() *slog.Logger {
	return b.shared
}

// Token returns the logger for the given token address, opening its log
// file on first use. Repeated calls for the same address reuse the open
// handle; handlers are never duplicated.
func (b *Book) Token(addr common.Address) (*slog.Logger, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if e, ok := b.open[addr]; ok {
		return e.logger, nil
	}

	f, err := os.OpenFile(b.path(addr), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logbook: open log for %s: %w", addr.Hex(), err)
	}

	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: b.level})).
		With(slog.String("token", addr.Hex()))
	b.open[addr] = &entry{file: f, logger: logger}
	return logger, nil
}

// Close closes the token's log handle but leaves the file on disk for
// operator review. It is a no-op when no log is open for the address.
func (b *Book) Close(addr common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked(addr)
}

// Discard closes the token's log handle and removes the file. Used on
// fast-reject paths and clean successes, where there is nothing left to
// investigate.
func (b *Book) Discard(addr common.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.closeLocked(addr); err != nil {
		return err
	}
	if err := os.Remove(b.path(addr)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("logbook: remove log for %s: %w", addr.Hex(), err)
	}
	return nil
}

// Shutdown closes every open handle, the shared error log included.
func (b *Book) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var firstErr error
	for addr := range b.open {
		if err := b.closeLocked(addr); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := b.sharedFile.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (b *Book) closeLocked(addr common.Address) error {
	e, ok := b.open[addr]
	if !ok {
		return nil
	}
	delete(b.open, addr)
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("logbook: close log for %s: %w", addr.Hex(), err)
	}
	return nil
}

func (b *Book) path(addr common.Address) string {
	return filepath.Join(b.dir, addr.Hex()+".log")
}

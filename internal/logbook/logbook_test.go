package logbook

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func openBook(t *testing.T) *Book {
	t.Helper()
	book, err := Open(t.TempDir(), slog.LevelDebug)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = book.Shutdown() })
	return book
}

func logPath(b *Book, addr common.Address) string {
	return filepath.Join(b.dir, addr.Hex()+".log")
}

func TestTokenLogIsReused(t *testing.T) {
	book := openBook(t)
	addr := common.HexToAddress("0xAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaa")

	first, err := book.Token(addr)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	second, err := book.Token(addr)
	if err != nil {
		t.Fatalf("Token again: %v", err)
	}
	if first != second {
		t.Error("repeated Token calls must return the same logger")
	}
}

func TestCloseKeepsFile(t *testing.T) {
	book := openBook(t)
	addr := common.HexToAddress("0xBBBBbbbbBBBBbbbbBBBBbbbbBBBBbbbbBBBBbbbb")

	log, err := book.Token(addr)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	log.Info("probe started")

	if err := book.Close(addr); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(logPath(book, addr)); err != nil {
		t.Errorf("log file must survive Close: %v", err)
	}

	// Closing again is a no-op.
	if err := book.Close(addr); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestDiscardRemovesFile(t *testing.T) {
	book := openBook(t)
	addr := common.HexToAddress("0xCCCCccccCCCCccccCCCCccccCCCCccccCCCCcccc")

	if _, err := book.Token(addr); err != nil {
		t.Fatalf("Token: %v", err)
	}
	if err := book.Discard(addr); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if _, err := os.Stat(logPath(book, addr)); !os.IsNotExist(err) {
		t.Errorf("log file must be removed by Discard, stat err = %v", err)
	}
}

func TestSharedLogAlwaysAvailable(t *testing.T) {
	book := openBook(t)
	if book.Shared() == nil {
		t.Fatal("shared logger must not be nil")
	}
	book.Shared().Error("identification failed")

	data, err := os.ReadFile(filepath.Join(book.dir, "general_errors.log"))
	if err != nil {
		t.Fatalf("read shared log: %v", err)
	}
	if len(data) == 0 {
		t.Error("shared log must contain the written entry")
	}
}

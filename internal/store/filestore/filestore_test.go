package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	token := common.HexToAddress("0xAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaa")
	rec := &domain.ProbeRecord{
		RunID:        "run-1",
		TokenAddress: token,
		AmountIn:     decimal.RequireFromString("0.0002"),
		Outcome:      domain.OutcomeSuccessfulSell,
		CanSell:      true,
	}

	ctx := context.Background()
	if err := store.Save(ctx, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx, token)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.RunID != "run-1" || got.TokenAddress != token || !got.CanSell {
		t.Errorf("loaded record mismatch: %+v", got)
	}
	if !got.AmountIn.Equal(rec.AmountIn) {
		t.Errorf("amount in = %s, want %s", got.AmountIn, rec.AmountIn)
	}
}

func TestRerunOverwritesRecord(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	token := common.HexToAddress("0xBBBBbbbbBBBBbbbbBBBBbbbbBBBBbbbbBBBBbbbb")
	ctx := context.Background()

	first := &domain.ProbeRecord{RunID: "run-1", TokenAddress: token, Outcome: domain.OutcomeFailedSell}
	second := &domain.ProbeRecord{RunID: "run-2", TokenAddress: token, Outcome: domain.OutcomeSuccessfulSell}
	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save first: %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save second: %v", err)
	}

	got, err := store.Load(ctx, token)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.RunID != "run-2" || got.Outcome != domain.OutcomeSuccessfulSell {
		t.Errorf("latest run must win, got %+v", got)
	}

	addrs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(addrs) != 1 {
		t.Errorf("List = %v, want one address", addrs)
	}
}

func TestLoadMissingRecord(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	_, err = store.Load(context.Background(), common.HexToAddress("0x1"))
	if err != domain.ErrNotFound {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListSkipsForeignFiles(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	for _, name := range []string{"notes.txt", "garbage.json"} {
		if err := os.WriteFile(filepath.Join(store.Dir(), name), []byte("{}"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	addrs, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(addrs) != 0 {
		t.Errorf("List = %v, want empty", addrs)
	}
}

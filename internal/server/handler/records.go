package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/pairprobe/internal/domain"
)

// RecordHandler serves persisted probe records.
type RecordHandler struct {
	records domain.RecordStore
	logger  *slog.Logger
}

// NewRecordHandler creates a RecordHandler over the given store.
func NewRecordHandler(records domain.RecordStore, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{records: records, logger: logger}
}

// ListRecords returns the token addresses with a persisted record.
// GET /api/records
func (h *RecordHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	addrs, err := h.records.List(r.Context())
	if err != nil {
		h.logger.Error("list records", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	hexes := make([]string, 0, len(addrs))
	for _, a := range addrs {
		hexes = append(hexes, a.Hex())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(hexes),
		"tokens": hexes,
	})
}

// GetRecord returns the full record for one token address.
// GET /api/records/{address}
func (h *RecordHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	hexAddr := r.PathValue("address")
	if !common.IsHexAddress(hexAddr) {
		writeError(w, http.StatusBadRequest, "invalid token address")
		return
	}

	rec, err := h.records.Load(r.Context(), common.HexToAddress(hexAddr))
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no record for token")
		return
	}
	if err != nil {
		h.logger.Error("load record", "token", hexAddr, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load record")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

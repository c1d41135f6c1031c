package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/txengine/internal/adapter/http/dto"
	"github.com/iho/txengine/internal/domain"
)

// SnapshotCache reads accounts cached by earlier runs.
type SnapshotCache interface {
	Latest(ctx context.Context) (string, error)
	Get(ctx context.Context, runID string, client uint16) (domain.ClientAccount, error)
}

// SnapshotArchive reads account tables stored by earlier runs.
type SnapshotArchive interface {
	ListByRun(ctx context.Context, runID string) ([]domain.ClientAccount, error)
}

// RunHandler serves snapshots published by earlier runs. Either store
// may be nil when its sink is not configured.
type RunHandler struct {
	cache   SnapshotCache
	archive SnapshotArchive
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(cache SnapshotCache, archive SnapshotArchive) *RunHandler {
	return &RunHandler{cache: cache, archive: archive}
}

// Latest returns the id of the most recently cached run.
func (h *RunHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		writeError(w, http.StatusNotImplemented, "snapshot cache not configured", "")
		return
	}

	runID, err := h.cache.Latest(r.Context())
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get latest run", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.LatestRunResponse{RunID: runID})
}

// List returns the stored account table of a run.
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeError(w, http.StatusNotImplemented, "snapshot archive not configured", "")
		return
	}

	runID := chi.URLParam(r, "run")

	accounts, err := h.archive.ListByRun(r.Context(), runID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list run accounts", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		RunID:    runID,
		Accounts: dto.AccountsFromDomain(accounts),
	})
}

// Get returns one account of a run, from the cache when available and
// from the archive otherwise.
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	client, err := parseClientID(chi.URLParam(r, "client"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid client id", err.Error())
		return
	}

	runID := chi.URLParam(r, "run")

	var account domain.ClientAccount
	switch {
	case h.cache != nil:
		account, err = h.cache.Get(r.Context(), runID, client)
	case h.archive != nil:
		account, err = h.findArchived(r.Context(), runID, client)
	default:
		writeError(w, http.StatusNotImplemented, "no snapshot store configured", "")
		return
	}
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get run account", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

func (h *RunHandler) findArchived(ctx context.Context, runID string, client uint16) (domain.ClientAccount, error) {
	accounts, err := h.archive.ListByRun(ctx, runID)
	if err != nil {
		return domain.ClientAccount{}, err
	}

	for _, acc := range accounts {
		if acc.ClientID == client {
			return acc, nil
		}
	}

	return domain.ClientAccount{}, domain.ErrAccountNotFound
}

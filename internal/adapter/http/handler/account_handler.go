package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/txengine/internal/adapter/http/dto"
	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/usecase"
)

// ReportService defines the behavior needed by the read-only handlers.
type ReportService interface {
	RunID() string
	Accounts() []domain.ClientAccount
	Account(client uint16) (domain.ClientAccount, error)
	Stats() usecase.Stats
}

// AccountHandler serves the account table of a finished run.
type AccountHandler struct {
	report ReportService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(report ReportService) *AccountHandler {
	return &AccountHandler{report: report}
}

// Get retrieves one account by client id.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	client, err := parseClientID(chi.URLParam(r, "client"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid client id", err.Error())
		return
	}

	account, err := h.report.Account(client)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get account", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// List lists all accounts.
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.ListAccountsResponse{
		RunID:    h.report.RunID(),
		Accounts: dto.AccountsFromDomain(h.report.Accounts()),
	})
}

// Stats returns the applied, rejected and malformed counts of the run.
func (h *AccountHandler) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.StatsFromUseCase(h.report.RunID(), h.report.Stats()))
}

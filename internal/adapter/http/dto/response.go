package dto

import (
	"github.com/iho/txengine/internal/domain"
	"github.com/iho/txengine/internal/usecase"
)

// AccountResponse represents a client account in API responses.
// Amounts are fixed-point strings with four decimal places.
type AccountResponse struct {
	Client    uint16 `json:"client"`
	Available string `json:"available"`
	Held      string `json:"held"`
	Total     string `json:"total"`
	Locked    bool   `json:"locked"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a domain.ClientAccount) AccountResponse {
	return AccountResponse{
		Client:    a.ClientID,
		Available: domain.FormatAmount(a.Available),
		Held:      domain.FormatAmount(a.Held),
		Total:     domain.FormatAmount(a.Total),
		Locked:    a.Locked,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []domain.ClientAccount) []AccountResponse {
	result := make([]AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse wraps the account table of a run.
type ListAccountsResponse struct {
	RunID    string            `json:"run_id"`
	Accounts []AccountResponse `json:"accounts"`
}

// LatestRunResponse names the most recently cached run.
type LatestRunResponse struct {
	RunID string `json:"run_id"`
}

// StatsResponse summarises a run.
type StatsResponse struct {
	RunID     string         `json:"run_id"`
	Applied   int            `json:"applied"`
	Rejected  int            `json:"rejected"`
	Malformed int            `json:"malformed"`
	Reasons   map[string]int `json:"rejected_by_reason"`
}

// StatsFromUseCase converts run stats to a response.
func StatsFromUseCase(runID string, s usecase.Stats) StatsResponse {
	reasons := s.Reasons
	if reasons == nil {
		reasons = map[string]int{}
	}

	return StatsResponse{
		RunID:     runID,
		Applied:   s.Applied,
		Rejected:  s.Rejected,
		Malformed: s.Malformed,
		Reasons:   reasons,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

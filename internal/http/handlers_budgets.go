package http

import (
	"net/http"

	"finhealth/internal/core"
	applog "finhealth/internal/log"
)

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	snap := s.budgets.Snapshot()
	NewJSONResponse().Body(budgetListJSON{
		Version: snap.Version,
		Budgets: toBudgetList(snap.Active),
	}).Write(w)
}

func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	snap := s.budgets.Snapshot()
	NewJSONResponse().Body(budgetListJSON{
		Version: snap.Version,
		Budgets: toBudgetList(snap.Suggestions),
	}).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(toSummaryJSON(s.budgets.Summary())).Write(w)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	b, err := s.budgets.Get(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, applog.OpRead, err)
		return
	}
	NewJSONResponse().Body(toBudgetJSON(b)).Write(w)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req newBudgetRequest
	if resp := DecodeJSON(w, r, &req, false); resp != nil {
		resp.Write(w)
		return
	}

	created, err := s.budgets.AddCustomBudget(r.Context(), core.NewBudget{
		Category:       sanitizeInput(req.Category),
		Emoji:          sanitizeInput(req.Emoji),
		Amount:         req.Amount,
		SpentAmount:    req.SpentAmount,
		LastMonthSpent: req.LastMonthSpent,
	})
	if err != nil {
		s.fail(w, r, applog.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/budgets/"+created.ID).
		Body(toBudgetJSON(created)).
		Write(w)
}

func (s *Server) handleAcceptSuggestion(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if resp := DecodeJSON(w, r, &req, true); resp != nil {
		resp.Write(w)
		return
	}

	accepted, err := s.budgets.AcceptSuggestion(r.Context(), r.PathValue("id"), req.Amount)
	if err != nil {
		s.fail(w, r, applog.OpAccept, err)
		return
	}
	NewJSONResponse().Body(toBudgetJSON(accepted)).Write(w)
}

func (s *Server) handleEditBudget(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if resp := DecodeJSON(w, r, &req, false); resp != nil {
		resp.Write(w)
		return
	}
	if req.Amount == nil {
		BadRequestError("amount is required").Write(w)
		return
	}

	edited, err := s.budgets.EditBudget(r.Context(), r.PathValue("id"), *req.Amount)
	if err != nil {
		s.fail(w, r, applog.OpUpdate, err)
		return
	}
	NewJSONResponse().Body(toBudgetJSON(edited)).Write(w)
}

func (s *Server) handleDismissSuggestion(w http.ResponseWriter, r *http.Request) {
	if err := s.budgets.DismissSuggestion(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, applog.OpDismiss, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.budgets.DeleteBudget(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, applog.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleRefresh re-reads spend for ?period= (default current month) and
// then proposes suggestions for uncovered categories.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	period, resp := ParsePeriodParam(r, s.now())
	if resp != nil {
		resp.Write(w)
		return
	}

	updated, err := s.budgets.RefreshSpend(r.Context(), period)
	if err != nil {
		s.fail(w, r, applog.OpRefresh, err)
		return
	}
	suggested, err := s.budgets.GenerateSuggestions(r.Context(), period)
	if err != nil {
		s.fail(w, r, applog.OpRefresh, err)
		return
	}
	NewJSONResponse().Body(refreshJSON{
		Period:    period.String(),
		Updated:   updated,
		Suggested: suggested,
	}).Write(w)
}

func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	limit, resp := ParseLimitParam(r, 50, 500)
	if resp != nil {
		resp.Write(w)
		return
	}
	events, err := s.events.RecentEvents(r.Context(), limit)
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	out := make([]eventJSON, 0, len(events))
	for _, e := range events {
		out = append(out, toEventJSON(e))
	}
	NewJSONResponse().Body(map[string]any{"events": out}).Write(w)
}

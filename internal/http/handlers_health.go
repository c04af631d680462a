package http

import (
	"net/http"

	"finhealth/internal/core"
	applog "finhealth/internal/log"
)

// handleCurrentScore computes the score from the live factor inputs without
// recording it.
func (s *Server) handleCurrentScore(w http.ResponseWriter, r *http.Request) {
	score, err := s.health.Current(r.Context())
	if err != nil {
		s.fail(w, r, applog.OpScore, err)
		return
	}
	NewJSONResponse().Body(toScoreJSON(score)).Write(w)
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	window, resp := ParseWindowParam(r)
	if resp != nil {
		resp.Write(w)
		return
	}
	trend, err := s.health.Trend(r.Context(), window)
	if err != nil {
		s.fail(w, r, applog.OpTrend, err)
		return
	}
	NewJSONResponse().Body(toTrendJSON(trend)).Write(w)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	points := s.health.History()
	out := make([]pointJSON, 0, len(points))
	for _, p := range points {
		out = append(out, pointJSON{Period: p.PeriodLabel, Score: p.Score})
	}
	NewJSONResponse().Body(map[string]any{"points": out}).Write(w)
}

func (s *Server) handleRecordScore(w http.ResponseWriter, r *http.Request) {
	var req historyRequest
	if resp := DecodeJSON(w, r, &req, true); resp != nil {
		resp.Write(w)
		return
	}
	label := sanitizeInput(req.Period)

	if req.Score != nil {
		if label == "" {
			BadRequestError("period is required when importing a score").Write(w)
			return
		}
		p := core.HistoricalScorePoint{PeriodLabel: label, Score: *req.Score}
		if err := s.health.AppendPoint(r.Context(), p); err != nil {
			s.fail(w, r, applog.OpCreate, err)
			return
		}
		NewJSONResponse().Status(http.StatusCreated).Body(pointJSON{Period: p.PeriodLabel, Score: p.Score}).Write(w)
		return
	}

	score, err := s.health.Record(r.Context(), label)
	if err != nil {
		s.fail(w, r, applog.OpScore, err)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).Body(toScoreJSON(score)).Write(w)
}

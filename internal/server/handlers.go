package server

import (
	"encoding/json"
	"net/http"
	"time"

	"ProtectiveAllocator/internal/model"
	"ProtectiveAllocator/internal/report"
)

type tableResponse struct {
	Dates   []string               `json:"dates"`
	Symbols []string               `json:"symbols"`
	Amounts [][]float64            `json:"amounts"`
	Totals  []float64              `json:"totals"`
	Summary []report.SymbolSummary `json:"summary"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.recorder.History(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("load allocation history")
		s.writeError(w, http.StatusInternalServerError, "failed to load allocation history")
		return
	}
	s.writeJSON(w, http.StatusOK, nonNil(records))
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	records, err := s.recorder.Latest(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("load latest allocation")
		s.writeError(w, http.StatusInternalServerError, "failed to load latest allocation")
		return
	}
	if len(records) == 0 {
		s.writeError(w, http.StatusNotFound, "no allocation recorded yet")
		return
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	records, err := s.recorder.History(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("load allocation history")
		s.writeError(w, http.StatusInternalServerError, "failed to load allocation history")
		return
	}
	table, err := report.Pivot(records)
	if err != nil {
		s.log.Error().Err(err).Msg("pivot allocation history")
		s.writeError(w, http.StatusInternalServerError, "allocation history is malformed")
		return
	}

	resp := tableResponse{
		Dates:   make([]string, len(table.Dates)),
		Symbols: nonNilStrings(table.Symbols),
		Amounts: table.Amounts,
		Totals:  table.Totals(),
		Summary: report.Summarize(table),
	}
	for i, d := range table.Dates {
		resp.Dates[i] = d.Format(model.DateLayout)
	}
	if resp.Amounts == nil {
		resp.Amounts = [][]float64{}
	}
	if resp.Summary == nil {
		resp.Summary = []report.SymbolSummary{}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func nonNil(records []model.AllocationRecord) []model.AllocationRecord {
	if records == nil {
		return []model.AllocationRecord{}
	}
	return records
}

func nonNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

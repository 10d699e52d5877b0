package adapthttp

import (
	"fmt"
	"net/http"

	"weighttracking/internal/domain"
)

func (s *Server) handleListWeights(w http.ResponseWriter, r *http.Request) {
	rid, err := int64Query(r, "resident")
	if err != nil {
		writeError(w, err)
		return
	}
	date, err := dateQuery(r, "date")
	if err != nil {
		writeError(w, err)
		return
	}
	f := domain.WeightFilter{ResidentID: rid, Limit: intQuery(r, "limit", 0)}
	if !date.IsZero() {
		f.Date = &date
	}

	items, err := s.weights.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetWeight(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	item, err := s.weights.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleRecordWeight(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Resident int64       `json:"resident"`
		Date     domain.Date `json:"date"`
		Weight   float64     `json:"weight"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	item, err := s.weights.Record(r.Context(), body.Resident, body.Date, body.Weight)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleCorrectWeight(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body struct {
		Weight *float64 `json:"weight"`
	}
	if err := parseJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Weight == nil {
		writeError(w, fmt.Errorf("%w: weight is required", errBadRequest))
		return
	}
	item, err := s.weights.Correct(r.Context(), id, *body.Weight)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteWeight(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.weights.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWeightHistory(w http.ResponseWriter, r *http.Request) {
	rid, err := int64Query(r, "resident")
	if err != nil {
		writeError(w, err)
		return
	}
	if rid == nil {
		writeError(w, fmt.Errorf("%w: resident is required", errBadRequest))
		return
	}
	unit := r.URL.Query().Get("unit")
	if unit == "" {
		unit = domain.BaseUnit
	}
	items, err := s.weights.History(r.Context(), *rid, intQuery(r, "limit", 30), unit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resident": *rid, "unit": unit, "items": items})
}

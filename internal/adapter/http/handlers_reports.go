package adapthttp

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"weighttracking/internal/domain"
)

func (s *Server) handleDetailedView(w http.ResponseWriter, r *http.Request) {
	date, err := dateQuery(r, "date")
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := s.reports.DetailedView(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleDetailedViewExport(w http.ResponseWriter, r *http.Request) {
	date, err := dateQuery(r, "date")
	if err != nil {
		writeError(w, err)
		return
	}
	unit := r.URL.Query().Get("unit")
	if unit == "" {
		unit = domain.BaseUnit
	}
	if !domain.ValidUnit(unit) {
		writeMessage(w, http.StatusBadRequest, "unit must be \"kg\" or \"lb\"")
		return
	}
	rows, err := s.reports.DetailedView(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := detailedViewWorkbook(date, rows, unit)
	if err != nil {
		s.logger.Error("detailed view export failed", zap.String("date", date.String()), zap.Error(err))
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "weights-"+date.String()+".xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

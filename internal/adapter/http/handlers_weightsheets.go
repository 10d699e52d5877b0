package adapthttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"weighttracking/internal/app"
	"weighttracking/internal/domain"
)

type createSheetRequest struct {
	Resident int64       `json:"resident"`
	Date     domain.Date `json:"date"`
	Weight   float64     `json:"weight"`
	domain.SheetFlags
}

// updateSheetRequest accepts a sheet echoed back from GET: id, employee and
// date are ignored and the date is never changed.
type updateSheetRequest struct {
	Resident residentRef `json:"resident"`
	domain.SheetFlags
}

// residentRef is a resident id sent bare or as the resident object a GET
// returns.
type residentRef int64

func (ref *residentRef) UnmarshalJSON(b []byte) error {
	var id int64
	if err := json.Unmarshal(b, &id); err == nil {
		*ref = residentRef(id)
		return nil
	}
	var obj struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("resident must be an id or an object with an id: %w", err)
	}
	*ref = residentRef(obj.ID)
	return nil
}

func (s *Server) handleListWeightSheets(w http.ResponseWriter, r *http.Request) {
	var f domain.SheetFilter
	rid, err := int64Query(r, "resident")
	if err != nil {
		writeError(w, err)
		return
	}
	f.ResidentID = rid
	date, err := dateQuery(r, "date")
	if err != nil {
		writeError(w, err)
		return
	}
	if !date.IsZero() {
		f.Date = &date
	}

	items, err := s.sheets.List(r.Context(), f)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetWeightSheet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	ws, err := s.sheets.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ws)
}

func (s *Server) handleCreateWeightSheet(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req createSheetRequest
	if err := parseJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ws, err := s.sheets.Create(r.Context(), caller, app.SheetInput{
		ResidentID: req.Resident,
		Date:       req.Date,
		Flags:      req.SheetFlags,
		Weight:     req.Weight,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ws)
}

func (s *Server) handleUpdateWeightSheet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	caller, err := s.caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateSheetRequest
	if err := parseJSONLenient(r, &req); err != nil {
		writeError(w, err)
		return
	}

	err = s.sheets.Update(r.Context(), caller, id, app.SheetUpdate{
		ResidentID: int64(req.Resident),
		Flags:      req.SheetFlags,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDestroyWeightSheet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.sheets.Destroy(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseDateBody reads {"date": "YYYY-MM-DD"}. An empty body yields the zero
// date so the service can report the missing date.
func parseDateBody(r *http.Request) (domain.Date, error) {
	var body struct {
		Date domain.Date `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Date{}, nil
		}
		if errors.Is(err, domain.ErrInvalidDate) {
			return domain.Date{}, err
		}
		return domain.Date{}, fmt.Errorf("%w: invalid json: %v", errBadRequest, err)
	}
	return body.Date, nil
}

func (s *Server) handleCreateAllWeightSheets(w http.ResponseWriter, r *http.Request) {
	caller, err := s.caller(r)
	if err != nil {
		writeError(w, err)
		return
	}
	date, err := parseDateBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := s.sheets.BulkCreateForDate(r.Context(), caller, date)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.addSheetsCreated(n)
	writeJSON(w, http.StatusCreated, map[string]string{"msg": fmt.Sprintf("%d Weightsheets created", n)})
}

func (s *Server) handleDeleteAllByDate(w http.ResponseWriter, r *http.Request) {
	date, err := dateQuery(r, "date")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.sheets.DeleteAllByDate(r.Context(), date); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSaveWeightSheets(w http.ResponseWriter, r *http.Request) {
	s.toggleFinal(w, r, true)
}

func (s *Server) handleUnsaveWeightSheets(w http.ResponseWriter, r *http.Request) {
	s.toggleFinal(w, r, false)
}

func (s *Server) toggleFinal(w http.ResponseWriter, r *http.Request, final bool) {
	date, err := parseDateBody(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var n int64
	if final {
		n, err = s.sheets.LockAllByDate(r.Context(), date)
	} else {
		n, err = s.sheets.UnlockAllByDate(r.Context(), date)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.addFinalToggled(final, n)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	dates, err := s.reports.Dates(r.Context())
	if err != nil {
		s.logger.Error("list dates failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

func (s *Server) handleFinalizedDates(w http.ResponseWriter, r *http.Request) {
	dates, err := s.reports.FinalizedDates(r.Context())
	if err != nil {
		s.logger.Error("list finalized dates failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

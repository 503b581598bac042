package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wattgate/wattgate-core/internal/energy"
)

// limitRequest is the request body for creating or updating an energy limit.
type limitRequest struct {
	Start     string  `json:"start"`
	End       string  `json:"end"`
	BudgetKWh float64 `json:"budget_kwh"`
}

// limitResponse is the wire representation of an energy limit.
type limitResponse struct {
	ID        string  `json:"id"`
	Start     string  `json:"start"`
	End       string  `json:"end"`
	BudgetKWh float64 `json:"budget_kwh"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// isLimitValidationError reports whether err is any limit field
// validation failure.
func isLimitValidationError(err error) bool {
	return errors.Is(err, energy.ErrInvalidLimit) ||
		errors.Is(err, energy.ErrInvalidWindow) ||
		errors.Is(err, energy.ErrNegativeBudget)
}

func toLimitResponse(l *energy.EnergyLimit) limitResponse {
	return limitResponse{
		ID:        l.ID,
		Start:     l.Start.Format(time.RFC3339),
		End:       l.End.Format(time.RFC3339),
		BudgetKWh: l.BudgetKWh,
		CreatedAt: l.CreatedAt.Format(time.RFC3339),
		UpdatedAt: l.UpdatedAt.Format(time.RFC3339),
	}
}

// parseLimitRequest decodes and validates the time window fields.
func parseLimitRequest(r *http.Request) (*limitRequest, time.Time, time.Time, error) {
	var req limitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, time.Time{}, time.Time{}, errors.New("invalid request body")
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return nil, time.Time{}, time.Time{}, errors.New("start must be an RFC 3339 timestamp")
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		return nil, time.Time{}, time.Time{}, errors.New("end must be an RFC 3339 timestamp")
	}

	return &req, start, end, nil
}

func (s *Server) handleListLimits(w http.ResponseWriter, r *http.Request) {
	limits, err := s.limits.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list limits", "error", err)
		writeInternalError(w, "failed to list limits")
		return
	}

	out := make([]limitResponse, 0, len(limits))
	for i := range limits {
		out = append(out, toLimitResponse(&limits[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateLimit(w http.ResponseWriter, r *http.Request) {
	req, start, end, err := parseLimitRequest(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	limit := &energy.EnergyLimit{
		ID:        energy.GenerateID(),
		Start:     start,
		End:       end,
		BudgetKWh: req.BudgetKWh,
	}

	if err := s.limits.Create(r.Context(), limit); err != nil {
		if isLimitValidationError(err) {
			writeValidationError(w, err.Error())
			return
		}
		s.logger.Error("failed to create limit", "error", err)
		writeInternalError(w, "failed to create limit")
		return
	}

	writeJSON(w, http.StatusCreated, toLimitResponse(limit))
}

// handleActiveLimit returns the limit governing the current instant.
func (s *Server) handleActiveLimit(w http.ResponseWriter, r *http.Request) {
	limit, err := s.limits.ActiveAt(r.Context(), time.Now())
	if err != nil {
		if errors.Is(err, energy.ErrLimitNotFound) {
			writeNotFound(w, "no active limit")
			return
		}
		s.logger.Error("failed to resolve active limit", "error", err)
		writeInternalError(w, "failed to resolve active limit")
		return
	}
	writeJSON(w, http.StatusOK, toLimitResponse(limit))
}

func (s *Server) handleGetLimit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit, err := s.limits.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, energy.ErrLimitNotFound) {
			writeNotFound(w, "limit not found")
			return
		}
		s.logger.Error("failed to get limit", "id", id, "error", err)
		writeInternalError(w, "failed to get limit")
		return
	}
	writeJSON(w, http.StatusOK, toLimitResponse(limit))
}

func (s *Server) handleUpdateLimit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit, err := s.limits.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, energy.ErrLimitNotFound) {
			writeNotFound(w, "limit not found")
			return
		}
		s.logger.Error("failed to get limit", "id", id, "error", err)
		writeInternalError(w, "failed to get limit")
		return
	}

	req, start, end, err := parseLimitRequest(r)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	limit.Start = start
	limit.End = end
	limit.BudgetKWh = req.BudgetKWh

	if err := s.limits.Update(r.Context(), limit); err != nil {
		if isLimitValidationError(err) {
			writeValidationError(w, err.Error())
			return
		}
		s.logger.Error("failed to update limit", "id", id, "error", err)
		writeInternalError(w, "failed to update limit")
		return
	}

	writeJSON(w, http.StatusOK, toLimitResponse(limit))
}

func (s *Server) handleDeleteLimit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.limits.Delete(r.Context(), id); err != nil {
		if errors.Is(err, energy.ErrLimitNotFound) {
			writeNotFound(w, "limit not found")
			return
		}
		s.logger.Error("failed to delete limit", "id", id, "error", err)
		writeInternalError(w, "failed to delete limit")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

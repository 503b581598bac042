package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wattgate/wattgate-core/internal/device"
	"github.com/wattgate/wattgate-core/internal/schedule"
)

// scheduleRequest is the request body for creating or updating a schedule.
type scheduleRequest struct {
	DeviceID string `json:"device_id"`
	OnTime   string `json:"on_time"`
	OffTime  string `json:"off_time"`
	Active   *bool  `json:"active"`
}

// scheduleResponse is the wire representation of a schedule.
type scheduleResponse struct {
	ID        string `json:"id"`
	DeviceID  string `json:"device_id"`
	OnTime    string `json:"on_time"`
	OffTime   string `json:"off_time"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toScheduleResponse(s *schedule.Schedule) scheduleResponse {
	return scheduleResponse{
		ID:        s.ID,
		DeviceID:  s.DeviceID,
		OnTime:    s.OnTime,
		OffTime:   s.OffTime,
		Active:    s.Active,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	var (
		schedules []schedule.Schedule
		err       error
	)

	if deviceID := r.URL.Query().Get("device_id"); deviceID != "" {
		schedules, err = s.schedules.ListByDevice(r.Context(), deviceID)
	} else {
		schedules, err = s.schedules.List(r.Context())
	}
	if err != nil {
		s.logger.Error("failed to list schedules", "error", err)
		writeInternalError(w, "failed to list schedules")
		return
	}

	out := make([]scheduleResponse, 0, len(schedules))
	for i := range schedules {
		out = append(out, toScheduleResponse(&schedules[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if _, err := s.registry.GetDevice(r.Context(), req.DeviceID); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeValidationError(w, "unknown device")
			return
		}
		s.logger.Error("failed to resolve device", "id", req.DeviceID, "error", err)
		writeInternalError(w, "failed to resolve device")
		return
	}

	sched := &schedule.Schedule{
		ID:       schedule.GenerateID(),
		DeviceID: req.DeviceID,
		OnTime:   req.OnTime,
		OffTime:  req.OffTime,
		Active:   true,
	}
	if req.Active != nil {
		sched.Active = *req.Active
	}

	if !s.validateSchedule(w, r, sched) {
		return
	}

	if err := s.schedules.Create(r.Context(), sched); err != nil {
		s.logger.Error("failed to create schedule", "error", err)
		writeInternalError(w, "failed to create schedule")
		return
	}

	writeJSON(w, http.StatusCreated, toScheduleResponse(sched))
}

func (s *Server) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sched, err := s.schedules.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			writeNotFound(w, "schedule not found")
			return
		}
		s.logger.Error("failed to get schedule", "id", id, "error", err)
		writeInternalError(w, "failed to get schedule")
		return
	}
	writeJSON(w, http.StatusOK, toScheduleResponse(sched))
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sched, err := s.schedules.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			writeNotFound(w, "schedule not found")
			return
		}
		s.logger.Error("failed to get schedule", "id", id, "error", err)
		writeInternalError(w, "failed to get schedule")
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if req.DeviceID != "" && req.DeviceID != sched.DeviceID {
		writeValidationError(w, "schedule cannot be moved to another device")
		return
	}
	if req.OnTime != "" {
		sched.OnTime = req.OnTime
	}
	if req.OffTime != "" {
		sched.OffTime = req.OffTime
	}
	if req.Active != nil {
		sched.Active = *req.Active
	}

	if !s.validateSchedule(w, r, sched) {
		return
	}

	if err := s.schedules.Update(r.Context(), sched); err != nil {
		s.logger.Error("failed to update schedule", "id", id, "error", err)
		writeInternalError(w, "failed to update schedule")
		return
	}

	writeJSON(w, http.StatusOK, toScheduleResponse(sched))
}

// handleToggleSchedule flips a schedule's active flag. The interval is
// unchanged, so no conflict validation is needed.
func (s *Server) handleToggleSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sched, err := s.schedules.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			writeNotFound(w, "schedule not found")
			return
		}
		s.logger.Error("failed to get schedule", "id", id, "error", err)
		writeInternalError(w, "failed to get schedule")
		return
	}

	sched.Active = !sched.Active

	if err := s.schedules.Update(r.Context(), sched); err != nil {
		s.logger.Error("failed to toggle schedule", "id", id, "error", err)
		writeInternalError(w, "failed to toggle schedule")
		return
	}

	writeJSON(w, http.StatusOK, toScheduleResponse(sched))
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.schedules.Delete(r.Context(), id); err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			writeNotFound(w, "schedule not found")
			return
		}
		s.logger.Error("failed to delete schedule", "id", id, "error", err)
		writeInternalError(w, "failed to delete schedule")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// validateSchedule runs interval and conflict validation, writing the
// appropriate error response on failure. Returns true when valid.
func (s *Server) validateSchedule(w http.ResponseWriter, r *http.Request, sched *schedule.Schedule) bool {
	err := s.validator.Validate(r.Context(), sched)
	if err == nil {
		return true
	}

	switch {
	case errors.Is(err, schedule.ErrInvalidClock), errors.Is(err, schedule.ErrInvalidInterval):
		writeValidationError(w, err.Error())
	case errors.Is(err, schedule.ErrScheduleConflict):
		writeConflict(w, err.Error())
	default:
		s.logger.Error("schedule validation failed", "error", err)
		writeInternalError(w, "failed to validate schedule")
	}
	return false
}

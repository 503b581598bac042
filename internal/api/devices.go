package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wattgate/wattgate-core/internal/command"
	"github.com/wattgate/wattgate-core/internal/device"
)

// deviceRequest is the request body for creating or updating a device.
type deviceRequest struct {
	Name            string  `json:"name"`
	Topic           string  `json:"topic"`
	ControlTopic    *string `json:"control_topic"`
	Tier            string  `json:"tier"`
	RatedWatts      float64 `json:"rated_watts"`
	ScheduleEnabled bool    `json:"schedule_enabled"`
}

// commandRequest is the request body for manual device control.
type commandRequest struct {
	Command string `json:"command"`
}

// isDeviceValidationError reports whether err is any device field
// validation failure.
func isDeviceValidationError(err error) bool {
	return errors.Is(err, device.ErrInvalidDevice) ||
		errors.Is(err, device.ErrInvalidName) ||
		errors.Is(err, device.ErrInvalidTopic) ||
		errors.Is(err, device.ErrInvalidTier) ||
		errors.Is(err, device.ErrInvalidStatus) ||
		errors.Is(err, device.ErrInvalidRatedWatts)
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.registry.ListDevices(r.Context())
	if err != nil {
		s.logger.Error("failed to list devices", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	tier := device.Tier(req.Tier)
	if req.Tier == "" {
		tier = device.TierNone
	}

	dev := &device.Device{
		ID:              device.GenerateID(),
		Name:            req.Name,
		Topic:           req.Topic,
		ControlTopic:    req.ControlTopic,
		Tier:            tier,
		RatedWatts:      req.RatedWatts,
		Status:          device.StatusOff,
		ScheduleEnabled: req.ScheduleEnabled,
	}

	if err := s.registry.CreateDevice(r.Context(), dev); err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceExists):
			writeConflict(w, "device with this topic already exists")
		case isDeviceValidationError(err):
			writeValidationError(w, err.Error())
		default:
			s.logger.Error("failed to create device", "error", err)
			writeInternalError(w, "failed to create device")
		}
		return
	}

	if s.subscriber != nil {
		if err := s.subscriber.SubscribeDevice(dev.Topic); err != nil {
			s.logger.Warn("failed to subscribe to device topic", "topic", dev.Topic, "error", err)
		}
	}

	writeJSON(w, http.StatusCreated, dev)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("failed to get device", "id", id, "error", err)
		writeInternalError(w, "failed to get device")
		return
	}
	writeJSON(w, http.StatusOK, dev)
}

func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("failed to get device", "id", id, "error", err)
		writeInternalError(w, "failed to get device")
		return
	}

	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	oldTopic := dev.Topic
	dev.Name = req.Name
	dev.Topic = req.Topic
	dev.ControlTopic = req.ControlTopic
	dev.RatedWatts = req.RatedWatts
	dev.ScheduleEnabled = req.ScheduleEnabled
	if req.Tier != "" {
		dev.Tier = device.Tier(req.Tier)
	}

	if err := s.registry.UpdateDevice(r.Context(), dev); err != nil {
		switch {
		case errors.Is(err, device.ErrDeviceExists):
			writeConflict(w, "device with this topic already exists")
		case isDeviceValidationError(err):
			writeValidationError(w, err.Error())
		default:
			s.logger.Error("failed to update device", "id", id, "error", err)
			writeInternalError(w, "failed to update device")
		}
		return
	}

	if s.subscriber != nil && dev.Topic != oldTopic {
		if err := s.subscriber.UnsubscribeDevice(oldTopic); err != nil {
			s.logger.Warn("failed to unsubscribe old device topic", "topic", oldTopic, "error", err)
		}
		if err := s.subscriber.SubscribeDevice(dev.Topic); err != nil {
			s.logger.Warn("failed to subscribe to device topic", "topic", dev.Topic, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, dev)
}

func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("failed to get device", "id", id, "error", err)
		writeInternalError(w, "failed to get device")
		return
	}

	if err := s.registry.DeleteDevice(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("failed to delete device", "id", id, "error", err)
		writeInternalError(w, "failed to delete device")
		return
	}

	if s.subscriber != nil {
		if err := s.subscriber.UnsubscribeDevice(dev.Topic); err != nil {
			s.logger.Warn("failed to unsubscribe device topic", "topic", dev.Topic, "error", err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleDeviceCommand switches a device ON or OFF at the owner's request.
//
// A manual ON also lifts any load-shedding block on the device: the
// owner's explicit action overrides the automatic policy until the
// accountant re-evaluates and possibly sheds it again.
func (s *Server) handleDeviceCommand(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	var cmd command.Command
	switch strings.ToUpper(req.Command) {
	case string(command.CommandOn):
		cmd = command.CommandOn
	case string(command.CommandOff):
		cmd = command.CommandOff
	default:
		writeValidationError(w, "command must be ON or OFF")
		return
	}

	dev, err := s.registry.GetDevice(r.Context(), id)
	if err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("failed to get device", "id", id, "error", err)
		writeInternalError(w, "failed to get device")
		return
	}

	status := device.StatusOff
	if cmd == command.CommandOn {
		status = device.StatusOn
		s.blocked.Remove(dev.ID)
	}

	if err := s.registry.UpdateStatus(r.Context(), dev.ID, status); err != nil {
		s.logger.Error("failed to update device status", "id", id, "error", err)
		writeInternalError(w, "failed to update device status")
		return
	}
	dev.Status = status

	s.publisher.Publish(dev, cmd)

	writeJSON(w, http.StatusOK, map[string]string{
		"device_id": dev.ID,
		"status":    string(status),
	})
}

func (s *Server) handleDeviceSamples(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := s.registry.GetDevice(r.Context(), id); err != nil {
		if errors.Is(err, device.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		s.logger.Error("failed to get device", "id", id, "error", err)
		writeInternalError(w, "failed to get device")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	samples, err := s.samples.ListByDevice(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("failed to list samples", "device_id", id, "error", err)
		writeInternalError(w, "failed to list samples")
		return
	}
	writeJSON(w, http.StatusOK, samples)
}

package api

import (
	"errors"
	"net/http"

	"github.com/wattgate/wattgate-core/internal/device"
)

// blockedDevice is the wire representation of a load-shed device.
type blockedDevice struct {
	DeviceID string `json:"device_id"`
	Name     string `json:"name"`
	Tier     string `json:"tier"`
}

// handleEnergyToday reports today's consumption against the active budget.
func (s *Server) handleEnergyToday(w http.ResponseWriter, r *http.Request) {
	summary, err := s.accountant.Snapshot(r.Context())
	if err != nil {
		s.logger.Error("failed to compute energy summary", "error", err)
		writeInternalError(w, "failed to compute energy summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleBlockedDevices lists devices currently held OFF by load shedding.
func (s *Server) handleBlockedDevices(w http.ResponseWriter, r *http.Request) {
	out := make([]blockedDevice, 0)
	for _, id := range s.blocked.IDs() {
		entry := blockedDevice{DeviceID: id}

		dev, err := s.registry.GetDevice(r.Context(), id)
		switch {
		case err == nil:
			entry.Name = dev.Name
			entry.Tier = string(dev.Tier)
		case errors.Is(err, device.ErrDeviceNotFound):
			// Device deleted while blocked; report the bare ID.
		default:
			s.logger.Error("failed to resolve blocked device", "id", id, "error", err)
			writeInternalError(w, "failed to list blocked devices")
			return
		}

		out = append(out, entry)
	}

	writeJSON(w, http.StatusOK, out)
}

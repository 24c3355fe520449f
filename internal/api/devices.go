package api

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/venstar-bridge/internal/audit"
	"github.com/nerrad567/venstar-bridge/internal/bridge"
)

// DeviceSummary is the API representation of one managed thermostat.
type DeviceSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Model     string `json:"model,omitempty"`
	Type      string `json:"type,omitempty"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Connected bool   `json:"connected"`

	// State is the latest climate snapshot, absent until the first
	// successful poll.
	State map[string]any `json:"state,omitempty"`
}

// summarise builds the API view of a device.
func summarise(dev *bridge.Device) DeviceSummary {
	cfg := dev.Config()

	summary := DeviceSummary{
		ID:        cfg.ID,
		Host:      cfg.Host,
		Port:      cfg.Port,
		Connected: dev.Connected(),
		Model:     dev.Client().Model(),
		Type:      dev.Client().DeviceType(),
	}

	if info := dev.Client().Info(); info != nil {
		summary.Name = info.Name
		summary.State = bridge.BuildClimateState(*info, cfg.Humidifier)
	}

	return summary
}

// handleListDevices returns all managed thermostats, sorted by id.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.bridge.Devices()

	summaries := make([]DeviceSummary, 0, len(devices))
	for _, dev := range devices {
		summaries = append(summaries, summarise(dev))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].ID < summaries[j].ID
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"devices": summaries,
		"count":   len(summaries),
	})
}

// handleGetDevice returns one thermostat by id.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, ok := s.bridge.Devices()[id]
	if !ok {
		writeNotFound(w, "device not found")
		return
	}

	writeJSON(w, http.StatusOK, summarise(dev))
}

// handleDeviceHistory returns recent state history for a thermostat.
// Accepts an optional ?limit= query parameter (default 50, max 200).
func (s *Server) handleDeviceHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeNotFound(w, "state history is not enabled")
		return
	}

	id := chi.URLParam(r, "id")
	if _, ok := s.bridge.Devices()[id]; !ok {
		writeNotFound(w, "device not found")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	entries, err := s.history.History(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("history query failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to query history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": id,
		"entries":   entries,
		"count":     len(entries),
	})
}

// handleDeviceCommands returns the command audit trail for a thermostat.
// Accepts optional ?status=, ?command=, ?limit= and ?offset= query parameters.
func (s *Server) handleDeviceCommands(w http.ResponseWriter, r *http.Request) {
	if s.audit == nil {
		writeNotFound(w, "command audit is not enabled")
		return
	}

	id := chi.URLParam(r, "id")
	if _, ok := s.bridge.Devices()[id]; !ok {
		writeNotFound(w, "device not found")
		return
	}

	filter := audit.Filter{
		DeviceID: id,
		Command:  r.URL.Query().Get("command"),
		Status:   r.URL.Query().Get("status"),
	}

	var err error
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		writeBadRequest(w, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = queryInt(r, "offset"); err != nil {
		writeBadRequest(w, "offset must be a non-negative integer")
		return
	}

	result, err := s.audit.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("command audit query failed", "device_id", id, "error", err)
		writeInternalError(w, "failed to query command audit")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// queryInt parses a non-negative integer query parameter, zero when absent.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return parsed, nil
}

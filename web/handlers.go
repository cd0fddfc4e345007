package web

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"dlarsson/keypadd/device"
	"dlarsson/keypadd/keymap"
)

// handleProfile handles GET and PUT requests for the mapping profile
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetProfile(w, r)
	case http.MethodPut:
		s.handlePutProfile(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetProfile returns the current profile in the persisted schema
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.session.Profile())
}

// handlePutProfile applies a partial profile update; fields absent from the
// body keep their current values. Changes are in-memory only until an
// explicit save.
func (s *Server) handlePutProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DevicePath *string                  `json:"device_path"`
		Enabled    *bool                    `json:"enabled"`
		Mapping    map[string]keymap.Action `json:"mapping"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.Mapping != nil {
		mapping := make(keymap.Mapping, len(req.Mapping))
		for key, act := range req.Mapping {
			code, err := strconv.ParseUint(key, 10, 16)
			if err != nil {
				http.Error(w, "Invalid key code: "+key, http.StatusBadRequest)
				return
			}
			mapping[uint16(code)] = act
		}
		if err := s.session.ReplaceMapping(mapping); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if req.DevicePath != nil {
		s.session.SetDevicePath(*req.DevicePath)
	}
	if req.Enabled != nil {
		s.session.SetEnabled(*req.Enabled)
	}

	writeStatusOK(w)
}

// handleProfileSave writes the profile to disk; saving is always explicit
func (s *Server) handleProfileSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.session.Save(s.cfg.ProfilePath); err != nil {
		slog.Error("Failed to save profile", "error", err)
		http.Error(w, "Failed to save profile", http.StatusInternalServerError)
		return
	}
	writeStatusOK(w)
}

// handleDefaults fills in the suggested default mapping. With ?overwrite=true
// existing entries are replaced; without it, only an empty mapping is filled.
// These are deliberately two distinct operations.
func (s *Server) handleDefaults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if r.URL.Query().Get("overwrite") == "true" {
		s.session.ApplyDefaults()
	} else {
		s.session.EnsureDefaults()
	}
	writeStatusOK(w)
}

// handleMapping handles single-entry add/update (POST) and delete (DELETE)
func (s *Server) handleMapping(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			Code  uint16 `json:"code"`
			Kind  string `json:"kind"`
			Value string `json:"value"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		kind, err := keymap.ParseKind(req.Kind)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.session.SetMapping(req.Code, keymap.Action{Kind: kind, Value: req.Value}); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeStatusOK(w)

	case http.MethodDelete:
		code, err := strconv.ParseUint(r.URL.Query().Get("code"), 10, 16)
		if err != nil {
			http.Error(w, "Invalid code", http.StatusBadRequest)
			return
		}
		s.session.DeleteMapping(uint16(code))
		writeStatusOK(w)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDevices returns the enumerated input devices for the picker
func (s *Server) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	devices, err := device.List()
	if err != nil {
		slog.Error("Failed to list devices", "error", err)
		http.Error(w, "Failed to list devices", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(devices)
}

// handleListenerStart starts listening on the requested device path
func (s *Server) handleListenerStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.session.Start(req.Path); err != nil {
		slog.Error("Failed to start listener", "error", err, "path", req.Path)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeStatusOK(w)
}

// handleListenerStop stops the active listener, if any
func (s *Server) handleListenerStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.session.Stop(); err != nil {
		slog.Error("Failed to stop listener", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeStatusOK(w)
}

// handleRecord arms the record-next-key mode; the captured code arrives on
// the WebSocket stream as a "recorded" event
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.session.ArmRecord()
	writeStatusOK(w)
}

// handleTest fires the action mapped to a code without a key press
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Code uint16 `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.session.TestAction(req.Code); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeStatusOK(w)
}

// handleHistory handles GET and DELETE requests for dispatch history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		http.Error(w, "History disabled", http.StatusServiceUnavailable)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleGetHistory(w, r)
	case http.MethodDelete:
		s.handleDeleteHistory(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleGetHistory returns paginated dispatch history
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	limit := 50 // default
	offset := 0

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	if offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	presses, err := s.db.GetPresses(limit, offset)
	if err != nil {
		slog.Error("Failed to get presses", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	total, err := s.db.GetPressCount()
	if err != nil {
		slog.Error("Failed to get press count", "error", err)
		http.Error(w, "Failed to get history", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"presses": presses,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleDeleteHistory deletes a history entry by ID
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	// Extract ID from path (e.g., /api/history/123)
	path := r.URL.Path
	parts := strings.Split(path, "/")
	if len(parts) < 4 {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return
	}

	idStr := parts[len(parts)-1]
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid ID", http.StatusBadRequest)
		return
	}

	if err := s.db.DeletePress(id); err != nil {
		slog.Error("Failed to delete press", "error", err, "id", id)
		http.Error(w, "Failed to delete press", http.StatusInternalServerError)
		return
	}

	writeStatusOK(w)
}

// handleStats returns dispatch statistics for the specified time range
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.db == nil {
		http.Error(w, "History disabled", http.StatusServiceUnavailable)
		return
	}

	daysStr := r.URL.Query().Get("days")
	days := 7 // default to 7 days
	if daysStr != "" {
		if d, err := strconv.Atoi(daysStr); err == nil && d > 0 {
			days = d
		}
	}

	daily, err := s.db.GetDailyStats(days)
	if err != nil {
		slog.Error("Failed to get daily stats", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	topKeys, err := s.db.GetTopKeys(days, 10)
	if err != nil {
		slog.Error("Failed to get top keys", "error", err)
		http.Error(w, "Failed to get statistics", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"daily":    daily,
		"top_keys": topKeys,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleStatus returns the current daemon status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	p := s.session.Profile()
	response := map[string]interface{}{
		"running":     s.session.Running(),
		"enabled":     p.Enabled,
		"device_path": p.DevicePath,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func writeStatusOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "success"})
}

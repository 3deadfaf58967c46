package api

import (
	"encoding/json"
	"net/http"
)

// voiceCommandRequest is the body for PUT /api/v1/voice/devices/{channel}.
// Any level above zero switches the channel on.
type voiceCommandRequest struct {
	Level uint8 `json:"level"`
}

// handleVoiceDevices lists voice-exposed devices with brightness levels.
func (s *Server) handleVoiceDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.voice.Devices()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleVoiceCommand applies a brightness command from the voice assistant.
func (s *Server) handleVoiceCommand(w http.ResponseWriter, r *http.Request) {
	channel, ok := channelParam(r)
	if !ok {
		writeBadRequest(w, "invalid channel")
		return
	}

	var req voiceCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.voice.HandleCommand(r.Context(), channel, req.Level); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channel": channel,
		"level":   req.Level,
	})
}

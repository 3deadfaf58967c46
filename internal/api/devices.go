package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/relaycore/internal/device"
)

// channelParam parses the {channel} URL parameter.
func channelParam(r *http.Request) (int, bool) {
	channel, err := strconv.Atoi(chi.URLParam(r, "channel"))
	if err != nil || channel < 0 {
		return 0, false
	}
	return channel, true
}

// handleListDevices returns all devices annotated with the caller's control
// rights.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.service.ListDevices(requestToken(r))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice returns one device.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	channel, ok := channelParam(r)
	if !ok {
		writeBadRequest(w, "invalid channel")
		return
	}

	view, err := s.service.GetDevice(requestToken(r), channel)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// setStateRequest is the body for PUT /devices/{channel}/state.
// Either "state" sets an explicit target or "toggle" flips the current one.
type setStateRequest struct {
	State  *bool `json:"state,omitempty"`
	Toggle bool  `json:"toggle,omitempty"`
}

// handleSetDeviceState applies a state command to a device.
func (s *Server) handleSetDeviceState(w http.ResponseWriter, r *http.Request) {
	channel, ok := channelParam(r)
	if !ok {
		writeBadRequest(w, "invalid channel")
		return
	}

	var req setStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var cmd device.Command
	switch {
	case req.Toggle:
		cmd = device.Flip()
	case req.State != nil:
		cmd = device.Explicit(*req.State)
	default:
		writeBadRequest(w, "either state or toggle is required")
		return
	}

	state, err := s.service.SetDeviceState(r.Context(), requestToken(r), channel, cmd)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channel": channel,
		"state":   state,
	})
}

// deviceRequest is the body for device create/update.
type deviceRequest struct {
	Channel      int    `json:"channel"`
	Name         string `json:"name"`
	DisplayName  string `json:"display_name"`
	VoiceExposed bool   `json:"voice_exposed"`
	InputPins    []int  `json:"input_pins"`
	OutputPins   []int  `json:"output_pins"`
	State        bool   `json:"state"`
}

func (req deviceRequest) toDevice() device.Device {
	return device.Device{
		Channel:      req.Channel,
		Name:         req.Name,
		DisplayName:  req.DisplayName,
		VoiceExposed: req.VoiceExposed,
		InputPins:    req.InputPins,
		OutputPins:   req.OutputPins,
		State:        req.State,
	}
}

// handleCreateDevice registers a new device. Admin only.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.service.AddDevice(r.Context(), requestToken(r), req.toDevice()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"channel": req.Channel})
}

// handleUpdateDevice replaces a device's metadata. Admin only.
func (s *Server) handleUpdateDevice(w http.ResponseWriter, r *http.Request) {
	channel, ok := channelParam(r)
	if !ok {
		writeBadRequest(w, "invalid channel")
		return
	}

	var req deviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.service.UpdateDevice(r.Context(), requestToken(r), channel, req.toDevice()); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel": channel})
}

// handleDeleteDevice removes a device. Admin only.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	channel, ok := channelParam(r)
	if !ok {
		writeBadRequest(w, "invalid channel")
		return
	}

	if err := s.service.DeleteDevice(r.Context(), requestToken(r), channel); err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel": channel, "deleted": true})
}

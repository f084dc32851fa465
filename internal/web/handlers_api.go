package web

import (
	"errors"
	"net/http"
	"time"

	"zigbee-go-color/internal/bridge"
	"zigbee-go-color/internal/converter"
	"zigbee-go-color/internal/store"
)

// deviceView is a device with its capabilities and cached state.
type deviceView struct {
	*store.Device
	Supported   bool           `json:"supported"`
	Description string         `json:"description,omitempty"`
	ColorModes  []string       `json:"color_modes,omitempty"`
	Effects     []string       `json:"effects,omitempty"`
	Gradient    bool           `json:"gradient"`
	State       map[string]any `json:"state"`
}

func (s *Server) view(dev *store.Device) deviceView {
	v := deviceView{Device: dev}
	if def := s.core.Definition(dev); def != nil {
		v.Supported = true
		v.Description = def.Description
		v.ColorModes = def.Light.ColorModes
		v.Effects = def.Effects()
		v.Gradient = def.Light.Gradient != nil
	}
	st, err := s.core.State(dev.IEEEAddress)
	if err != nil {
		s.logger.Warn("load state", "ieee", dev.IEEEAddress, "err", err)
	}
	if st == nil {
		st = map[string]any{}
	}
	v.State = st
	return v
}

// statusFor maps bridge errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, bridge.ErrInvalidDevice),
		errors.Is(err, converter.ErrInvalidValue),
		errors.Is(err, converter.ErrUnsupported):
		return http.StatusBadRequest
	case errors.Is(err, bridge.ErrNoTransport):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) handleAPIListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.core.Devices()
	if err != nil {
		s.logger.Error("list devices", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	views := make([]deviceView, 0, len(devices))
	for _, dev := range devices {
		views = append(views, s.view(dev))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleAPIGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, err := s.core.Device(r.PathValue("ieee"))
	if err != nil {
		s.writeError(w, statusFor(err), "device not found")
		return
	}
	s.writeJSON(w, http.StatusOK, s.view(dev))
}

type addDeviceRequest struct {
	IEEEAddress  string `json:"ieee_address"`
	FriendlyName string `json:"friendly_name"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Endpoint     uint8  `json:"endpoint"`
}

func (s *Server) handleAPIAddDevice(w http.ResponseWriter, r *http.Request) {
	var req addDeviceRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	dev := &store.Device{
		IEEEAddress:  req.IEEEAddress,
		FriendlyName: req.FriendlyName,
		Manufacturer: req.Manufacturer,
		Model:        req.Model,
		Endpoint:     req.Endpoint,
	}
	if err := s.core.AddDevice(dev); err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusCreated, s.view(dev))
}

type renameDeviceRequest struct {
	FriendlyName string `json:"friendly_name"`
}

func (s *Server) handleAPIRenameDevice(w http.ResponseWriter, r *http.Request) {
	var req renameDeviceRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.core.RenameDevice(r.PathValue("ieee"), req.FriendlyName); err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "friendly_name": req.FriendlyName})
}

func (s *Server) handleAPIDeleteDevice(w http.ResponseWriter, r *http.Request) {
	ieee := r.PathValue("ieee")
	if err := s.core.RemoveDevice(ieee); err != nil {
		s.logger.Warn("delete device", "err", err, "ieee", ieee)
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAPISetDevice applies a set payload such as {"state":"ON","color":{"hex":"#ff0000"}}.
// Keys that succeeded are committed even when others fail; the response
// carries the resulting state and the error.
func (s *Server) handleAPISetDevice(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := decodeBody(w, r, &payload); err != nil || len(payload) == 0 {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := withTimeout(r, 10*time.Second)
	defer cancel()

	ieee := r.PathValue("ieee")
	st, err := s.core.Set(ctx, ieee, payload)
	if err != nil {
		s.logger.Warn("set device", "err", err, "ieee", ieee)
		s.writeJSON(w, statusFor(err), map[string]any{"error": err.Error(), "state": st})
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

type getStateRequest struct {
	Keys []string `json:"keys"`
}

// handleAPIGetState asks the device to report the given keys. Values arrive
// asynchronously as state_change events.
func (s *Server) handleAPIGetState(w http.ResponseWriter, r *http.Request) {
	var req getStateRequest
	if err := decodeBody(w, r, &req); err != nil || len(req.Keys) == 0 {
		s.writeError(w, http.StatusBadRequest, "keys must not be empty")
		return
	}

	ctx, cancel := withTimeout(r, 10*time.Second)
	defer cancel()

	if err := s.core.Get(ctx, r.PathValue("ieee"), req.Keys); err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
}

package web

import (
	"encoding/hex"
	"net/http"

	"zigbee-go-color/internal/color"
	"zigbee-go-color/internal/philips"
)

// handleAPIColorConvert accepts any color value a set command accepts,
// e.g. {"hex":"#ff0000"} or {"x":0.3,"y":0.3}.
func (s *Server) handleAPIColorConvert(w http.ResponseWriter, r *http.Request) {
	var value any
	if err := decodeBody(w, r, &value); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := color.FromConverterArg(value)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, color.Convert(c))
}

type gradientEncodeRequest struct {
	Colors []string `json:"colors"`
	philips.GradientOptions
}

type gradientResponse struct {
	Payload string   `json:"payload,omitempty"`
	Colors  []string `json:"colors,omitempty"`
}

func (s *Server) handleAPIGradientEncode(w http.ResponseWriter, r *http.Request) {
	var req gradientEncodeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	payload, err := philips.EncodeGradient(req.Colors, req.GradientOptions)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, gradientResponse{Payload: payload, Colors: req.Colors})
}

type gradientDecodeRequest struct {
	// Payload is a hex encoded multiColor payload or 0xFC03 state attribute.
	Payload string `json:"payload"`
	Reverse bool   `json:"reverse"`
}

// handleAPIGradientDecode decodes a multiColor gradient payload, falling
// back to the full state attribute format.
func (s *Server) handleAPIGradientDecode(w http.ResponseWriter, r *http.Request) {
	var req gradientDecodeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	opts := philips.GradientOptions{Reverse: req.Reverse}

	if data, err := hex.DecodeString(req.Payload); err == nil {
		if colors, err := philips.DecodeGradient(data, opts); err == nil {
			s.writeJSON(w, http.StatusOK, gradientResponse{Payload: req.Payload, Colors: colors})
			return
		}
	}

	st, err := philips.DecodeState(req.Payload, opts)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !st.Known() {
		s.writeError(w, http.StatusBadRequest, "unrecognized payload")
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleAPIGradientScenes(w http.ResponseWriter, r *http.Request) {
	type scene struct {
		Name    string   `json:"name"`
		Payload string   `json:"payload"`
		Colors  []string `json:"colors"`
	}
	names := philips.SceneNames()
	scenes := make([]scene, 0, len(names))
	for _, name := range names {
		data, err := philips.ScenePayload(name)
		if err != nil {
			continue
		}
		colors, err := philips.DecodeGradient(data, philips.GradientOptions{})
		if err != nil {
			s.logger.Warn("decode scene", "name", name, "err", err)
			continue
		}
		scenes = append(scenes, scene{Name: name, Payload: philips.GradientScenes[name], Colors: colors})
	}
	s.writeJSON(w, http.StatusOK, scenes)
}

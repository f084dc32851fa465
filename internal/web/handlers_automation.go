package web

import (
	"net/http"

	"zigbee-go-color/internal/automation"
)

// automationsAvailable writes an error and returns false when the bridge
// runs without automations.
func (s *Server) automationsAvailable(w http.ResponseWriter) bool {
	if s.scriptMgr == nil || s.autoEngine == nil {
		s.writeError(w, http.StatusServiceUnavailable, "automations not available")
		return false
	}
	return true
}

func (s *Server) handleAPIListAutomations(w http.ResponseWriter, r *http.Request) {
	if s.scriptMgr == nil {
		s.writeJSON(w, http.StatusOK, []interface{}{})
		return
	}
	scripts, err := s.scriptMgr.List()
	if err != nil {
		s.logger.Error("list scripts", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if scripts == nil {
		scripts = []*automation.Script{}
	}
	s.writeJSON(w, http.StatusOK, scripts)
}

func (s *Server) handleAPIGetAutomation(w http.ResponseWriter, r *http.Request) {
	if !s.automationsAvailable(w) {
		return
	}
	script, err := s.scriptMgr.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "script not found")
		return
	}
	s.writeJSON(w, http.StatusOK, script)
}

type saveAutomationRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	LuaCode     string `json:"lua_code"`
	Enabled     bool   `json:"enabled"`
}

func (s *Server) handleAPICreateAutomation(w http.ResponseWriter, r *http.Request) {
	if !s.automationsAvailable(w) {
		return
	}
	var req saveAutomationRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		s.writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	script := &automation.Script{
		Meta: automation.ScriptMeta{
			Name:        req.Name,
			Description: req.Description,
			Enabled:     req.Enabled,
		},
		LuaCode: req.LuaCode,
	}
	s.saveAndReload(w, script, http.StatusCreated)
}

func (s *Server) handleAPIUpdateAutomation(w http.ResponseWriter, r *http.Request) {
	if !s.automationsAvailable(w) {
		return
	}
	existing, err := s.scriptMgr.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "script not found")
		return
	}
	var req saveAutomationRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	existing.Meta.Name = req.Name
	existing.Meta.Description = req.Description
	existing.Meta.Enabled = req.Enabled
	existing.LuaCode = req.LuaCode
	s.saveAndReload(w, existing, http.StatusOK)
}

func (s *Server) handleAPIToggleAutomation(w http.ResponseWriter, r *http.Request) {
	if !s.automationsAvailable(w) {
		return
	}
	script, err := s.scriptMgr.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, "script not found")
		return
	}
	script.Meta.Enabled = !script.Meta.Enabled
	s.saveAndReload(w, script, http.StatusOK)
}

// saveAndReload persists the script and restarts (or stops) its VM. A
// script that fails to start is still saved; the error is returned to the
// caller so the editor can show it.
func (s *Server) saveAndReload(w http.ResponseWriter, script *automation.Script, status int) {
	saved, err := s.scriptMgr.Save(script)
	if err != nil {
		s.logger.Error("save script", "err", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if err := s.autoEngine.ReloadScript(saved.ID); err != nil {
		s.logger.Warn("reload script", "id", saved.ID, "err", err)
		s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"error": err.Error(), "script": saved})
		return
	}
	s.writeJSON(w, status, saved)
}

func (s *Server) handleAPIDeleteAutomation(w http.ResponseWriter, r *http.Request) {
	if !s.automationsAvailable(w) {
		return
	}
	id := r.PathValue("id")
	s.autoEngine.StopScript(id)
	if err := s.scriptMgr.Delete(id); err != nil {
		s.logger.Warn("delete script", "err", err)
		s.writeError(w, http.StatusNotFound, "script not found")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAPIRunAutomation runs a saved script once, or the code in the body
// when id is "_inline".
func (s *Server) handleAPIRunAutomation(w http.ResponseWriter, r *http.Request) {
	if !s.automationsAvailable(w) {
		return
	}
	id := r.PathValue("id")
	if id == "_inline" {
		var req struct {
			LuaCode string `json:"lua_code"`
		}
		if err := decodeBody(w, r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		s.writeJSON(w, http.StatusOK, s.autoEngine.RunLuaCode(req.LuaCode))
		return
	}
	s.writeJSON(w, http.StatusOK, s.autoEngine.RunScript(id))
}

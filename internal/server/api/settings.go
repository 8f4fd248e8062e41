package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ayusman/signify/internal/store"
)

// Settings are the recognition values tunable at runtime.
type Settings struct {
	ConfidenceThreshold float64 `json:"confidence_threshold"`
	SignalFloor         int     `json:"signal_floor"`
}

// Validate reports the first invalid value as a user-facing message.
func (s Settings) Validate() string {
	if s.ConfidenceThreshold < 0 || s.ConfidenceThreshold >= 1 {
		return "confidence_threshold must be in [0, 1)"
	}
	if s.SignalFloor < 0 {
		return "signal_floor must not be negative"
	}
	return ""
}

// SettingsApplier receives settings accepted by the API.
type SettingsApplier interface {
	ApplySettings(threshold float32, floor int)
}

// SettingsHandler serves GET and PUT /api/settings.
type SettingsHandler struct {
	store    *store.Store
	defaults Settings
	applier  SettingsApplier
}

// NewSettingsHandler creates a SettingsHandler. defaults answer for keys
// that were never stored. applier may be nil.
func NewSettingsHandler(s *store.Store, defaults Settings, applier SettingsApplier) *SettingsHandler {
	return &SettingsHandler{store: s, defaults: defaults, applier: applier}
}

// ServeHTTP implements the http.Handler interface.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.current())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) current() Settings {
	s := h.defaults
	repo := h.store.Settings()
	if v, ok := repo.Float(store.SettingConfidenceThreshold); ok {
		s.ConfidenceThreshold = v
	}
	if v, ok := repo.Int(store.SettingSignalFloor); ok {
		s.SignalFloor = v
	}
	return s
}

// update handles PUT /api/settings. Omitted fields keep their value.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	s := h.current()
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if msg := s.Validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	repo := h.store.Settings()
	if err := repo.Set(store.SettingConfidenceThreshold, strconv.FormatFloat(s.ConfidenceThreshold, 'g', -1, 64)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}
	if err := repo.Set(store.SettingSignalFloor, strconv.Itoa(s.SignalFloor)); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save settings")
		return
	}

	if h.applier != nil {
		h.applier.ApplySettings(float32(s.ConfidenceThreshold), s.SignalFloor)
	}

	writeJSON(w, http.StatusOK, s)
}

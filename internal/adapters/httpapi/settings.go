package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Guilhem-Bonnet/hidaya/internal/app"
	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/httpjson"
)

type SettingsHandler struct {
	settings *app.SettingsService
}

func NewSettingsHandler(settings *app.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

func (h *SettingsHandler) Routes(r chi.Router) {
	for _, p := range []string{"/settings", "/settings/"} {
		r.Get(p, h.get)
		r.Put(p, h.put)
	}
	r.Post("/settings/reset", h.reset)
}

// settingsPatch: seuls les champs présents dans le corps sont modifiés.
type settingsPatch struct {
	Reciter  *string  `json:"reciter"`
	Speed    *float64 `json:"speed"`
	Volume   *float64 `json:"volume"`
	DarkMode *bool    `json:"darkMode"`
}

func (p settingsPatch) apply(s *domain.Settings) {
	if p.Reciter != nil {
		s.Reciter = *p.Reciter
	}
	if p.Speed != nil {
		s.Speed = *p.Speed
	}
	if p.Volume != nil {
		s.Volume = *p.Volume
	}
	if p.DarkMode != nil {
		s.DarkMode = *p.DarkMode
	}
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, s)
}

func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	var patch settingsPatch
	if err := httpjson.Decode(r, &patch); err != nil {
		httpjson.WriteCodedError(w, http.StatusBadRequest, app.CodeInvalidParams, "invalid json")
		return
	}
	updated, err := h.settings.Update(r.Context(), patch.apply)
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}

func (h *SettingsHandler) reset(w http.ResponseWriter, r *http.Request) {
	updated, err := h.settings.Put(r.Context(), domain.DefaultSettings())
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}

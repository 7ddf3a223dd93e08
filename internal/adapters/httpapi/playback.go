package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Guilhem-Bonnet/hidaya/internal/app"
	"github.com/Guilhem-Bonnet/hidaya/internal/httpjson"
)

// PlaybackHandler expose le contrôleur de lecture; toutes les actions passent par le Dispatcher
// afin d'avoir le même comportement qu'en MQTT.
type PlaybackHandler struct {
	player   *app.PlaybackController
	commands *app.Dispatcher
}

func NewPlaybackHandler(player *app.PlaybackController, commands *app.Dispatcher) *PlaybackHandler {
	return &PlaybackHandler{player: player, commands: commands}
}

func (h *PlaybackHandler) Routes(r chi.Router) {
	r.Route("/playback", func(r chi.Router) {
		r.Get("/", h.snapshot)
		r.Post("/play/{index}", h.indexed(app.CommandPlay))
		r.Post("/toggle/{index}", h.indexed(app.CommandToggle))
		r.Post("/toggle-all", h.action(app.CommandToggleAll))
		r.Post("/stop", h.action(app.CommandStop))
		r.Put("/speed", h.valued(app.CommandSpeed))
		r.Put("/volume", h.valued(app.CommandVolume))
	})
}

func (h *PlaybackHandler) snapshot(w http.ResponseWriter, r *http.Request) {
	httpjson.Write(w, http.StatusOK, h.player.Snapshot())
}

func (h *PlaybackHandler) indexed(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := indexParam(w, r)
		if !ok {
			return
		}
		h.dispatch(w, r, app.Command{Action: action, Index: &index})
	}
}

func (h *PlaybackHandler) action(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.dispatch(w, r, app.Command{Action: action})
	}
}

type valueRequest struct {
	Value *float64 `json:"value"`
}

func (h *PlaybackHandler) valued(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req valueRequest
		if err := httpjson.Decode(r, &req); err != nil {
			httpjson.WriteCodedError(w, http.StatusBadRequest, app.CodeInvalidParams, "invalid json")
			return
		}
		h.dispatch(w, r, app.Command{Action: action, Value: req.Value})
	}
}

func (h *PlaybackHandler) dispatch(w http.ResponseWriter, r *http.Request, cmd app.Command) {
	if _, err := h.commands.Dispatch(r.Context(), cmd); err != nil {
		writeAppError(w, r, err)
		return
	}
	httpjson.Write(w, http.StatusOK, h.player.Snapshot())
}

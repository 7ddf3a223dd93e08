package httpapi

import (
	"net/http"
	"testing"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
)

func TestSettingsHandler_GetDefaults(t *testing.T) {
	api := newTestAPI(t, stubTimings{})

	rr := api.do(http.MethodGet, "/api/v1/settings", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	got := decodeBody[domain.Settings](t, rr)
	if got != domain.DefaultSettings() {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestSettingsHandler_PartialPutAppliesToPlayback(t *testing.T) {
	api := newTestAPI(t, stubTimings{})

	rr := api.do(http.MethodPut, "/api/v1/settings", `{"speed":1.5,"volume":0.4}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	got := decodeBody[domain.Settings](t, rr)
	if got.Speed != 1.5 || got.Volume != 0.4 || got.Reciter != domain.DefaultReciter || !got.DarkMode {
		t.Fatalf("partial update lost fields: %+v", got)
	}
	if snap := api.player.Snapshot(); snap.Speed != 1.5 || snap.Volume != 0.4 {
		t.Fatalf("player not updated: %+v", snap)
	}

	// Hors bornes: ramené à une valeur sûre.
	rr = api.do(http.MethodPut, "/api/v1/settings/", `{"speed":12,"reciter":"  "}`)
	got = decodeBody[domain.Settings](t, rr)
	if got.Speed != domain.MaxSpeed || got.Reciter != domain.DefaultReciter {
		t.Fatalf("expected normalized settings, got %+v", got)
	}

	rr = api.do(http.MethodGet, "/api/v1/settings/", nil)
	if got := decodeBody[domain.Settings](t, rr); got.Volume != 0.4 {
		t.Fatalf("settings not persisted: %+v", got)
	}
}

func TestSettingsHandler_InvalidJSON(t *testing.T) {
	api := newTestAPI(t, stubTimings{})
	expectError(t, api.do(http.MethodPut, "/api/v1/settings", `{"speed":`), http.StatusBadRequest, "invalid_params")
}

func TestSettingsHandler_RejectsUnknownFieldsAndResets(t *testing.T) {
	api := newTestAPI(t, stubTimings{})

	expectError(t, api.do(http.MethodPut, "/api/v1/settings", `{"theme":"dark"}`), http.StatusBadRequest, "invalid_params")

	if rr := api.do(http.MethodPut, "/api/v1/settings", `{"darkMode":false,"reciter":"ar.husary"}`); rr.Code != http.StatusOK {
		t.Fatalf("put: %d %s", rr.Code, rr.Body.String())
	}
	rr := api.do(http.MethodPost, "/api/v1/settings/reset", nil)
	if got := decodeBody[domain.Settings](t, rr); rr.Code != http.StatusOK || got != domain.DefaultSettings() {
		t.Fatalf("reset: %d %+v", rr.Code, got)
	}
}

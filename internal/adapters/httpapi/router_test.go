package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Guilhem-Bonnet/hidaya/internal/app"
	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

func TestRouter_HealthVersionOpenAPI(t *testing.T) {
	api := newTestAPI(t, stubTimings{})

	if rr := api.do(http.MethodGet, "/api/v1/health", nil); rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"status":"ok","schema":1`) {
		t.Fatalf("health: %d %s", rr.Code, rr.Body.String())
	}
	if rr := api.do(http.MethodGet, "/api/v1/version", nil); rr.Code != http.StatusOK {
		t.Fatalf("version: %d", rr.Code)
	}

	rr := api.do(http.MethodGet, "/api/v1/openapi.json", nil)
	doc := decodeBody[struct {
		OpenAPI string         `json:"openapi"`
		Paths   map[string]any `json:"paths"`
	}](t, rr)
	for _, p := range []string{"/api/v1/reader/open", "/api/v1/playback/play/{index}", "/api/v1/prayer-times", "/api/v1/commands", "/api/v1/jobs"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Fatalf("openapi is missing %s", p)
		}
	}
}

func TestRouter_ReaderAndPlayback(t *testing.T) {
	api := newTestAPI(t, stubTimings{})

	expectError(t, api.do(http.MethodPost, "/api/v1/playback/play/0", nil), http.StatusBadRequest, app.CodeInvalidIndex)
	expectError(t, api.do(http.MethodGet, "/api/v1/reader/verses/0/share", nil), http.StatusConflict, app.CodeNoChapter)
	expectError(t, api.do(http.MethodPost, "/api/v1/reader/open", map[string]int{"chapter": 0}), http.StatusBadRequest, app.CodeInvalidParams)
	expectError(t, api.do(http.MethodPost, "/api/v1/reader/open", `{"chapter":1,"extra":true}`), http.StatusBadRequest, app.CodeInvalidParams)

	rr := api.do(http.MethodPost, "/api/v1/reader/open", map[string]int{"chapter": 112})
	if rr.Code != http.StatusOK {
		t.Fatalf("open: %d %s", rr.Code, rr.Body.String())
	}
	view := decodeBody[app.ReaderView](t, rr)
	if view.Chapter == nil || view.Chapter.Number != 112 || len(view.Verses) != 3 || view.Verses[0].Translation != "en.asad 112:1" {
		t.Fatalf("unexpected view: %+v", view)
	}

	rr = api.do(http.MethodPost, "/api/v1/playback/play/1", nil)
	snap := decodeBody[domain.PlaybackSnapshot](t, rr)
	if rr.Code != http.StatusOK || snap.State != domain.PlaybackPlaying || snap.Index != 1 {
		t.Fatalf("play: %d %+v", rr.Code, snap)
	}

	expectError(t, api.do(http.MethodPost, "/api/v1/playback/play/2", nil), http.StatusUnprocessableEntity, app.CodeNoAudioResource)
	expectError(t, api.do(http.MethodPost, "/api/v1/playback/play/x", nil), http.StatusBadRequest, app.CodeInvalidIndex)
	expectError(t, api.do(http.MethodPost, "/api/v1/playback/play/9", nil), http.StatusBadRequest, app.CodeInvalidIndex)

	rr = api.do(http.MethodPost, "/api/v1/playback/toggle-all", nil)
	if snap := decodeBody[domain.PlaybackSnapshot](t, rr); snap.State != domain.PlaybackPlayingAll || snap.Index != 1 {
		t.Fatalf("toggle-all: %+v", snap)
	}

	// Fin du verset signalée par le client: le suivant n'a pas d'audio, la lecture s'arrête.
	rr = api.do(http.MethodPost, "/api/v1/commands", map[string]any{"action": "ended", "index": 1})
	if view := decodeBody[app.ReaderView](t, rr); view.Playback.State != domain.PlaybackStopped {
		t.Fatalf("ended: %+v", view.Playback)
	}

	expectError(t, api.do(http.MethodPut, "/api/v1/playback/speed", `{"value":0}`), http.StatusBadRequest, app.CodeInvalidParams)
	rr = api.do(http.MethodPut, "/api/v1/playback/speed", `{"value":1.25}`)
	if snap := decodeBody[domain.PlaybackSnapshot](t, rr); snap.Speed != 1.25 {
		t.Fatalf("speed: %+v", snap)
	}

	rr = api.do(http.MethodPost, "/api/v1/playback/stop", nil)
	if snap := decodeBody[domain.PlaybackSnapshot](t, rr); snap.State != domain.PlaybackStopped {
		t.Fatalf("stop: %+v", snap)
	}

	rr = api.do(http.MethodPost, "/api/v1/reader/close", nil)
	if view := decodeBody[app.ReaderView](t, rr); view.Chapter != nil || len(view.Verses) != 0 {
		t.Fatalf("close: %+v", view)
	}
}

func TestRouter_Share(t *testing.T) {
	api := newTestAPI(t, stubTimings{})
	api.do(http.MethodPost, "/api/v1/reader/open", map[string]int{"chapter": 1})

	rr := api.do(http.MethodGet, "/api/v1/reader/verses/0/share?target=whatsapp", nil)
	share := decodeBody[app.Share](t, rr)
	if rr.Code != http.StatusOK || share.Target != app.ShareWhatsApp || !strings.HasPrefix(share.URL, "https://wa.me/?text=") {
		t.Fatalf("share: %d %+v", rr.Code, share)
	}
	if !strings.HasSuffix(share.Text, "— Surah 1, Ayah 1") {
		t.Fatalf("unexpected share text %q", share.Text)
	}

	expectError(t, api.do(http.MethodGet, "/api/v1/reader/verses/0/share?target=fax", nil), http.StatusBadRequest, app.CodeInvalidParams)
	expectError(t, api.do(http.MethodGet, "/api/v1/reader/verses/5/share", nil), http.StatusBadRequest, app.CodeInvalidIndex)

	rr = api.do(http.MethodGet, "/api/v1/reader/verses/1/share.png", nil)
	if rr.Code != http.StatusOK || rr.Header().Get("Content-Type") != "image/png" || rr.Body.Len() == 0 {
		t.Fatalf("share.png: %d %q", rr.Code, rr.Header().Get("Content-Type"))
	}
}

func TestRouter_ContentErrors(t *testing.T) {
	api := newTestAPI(t, stubTimings{})

	api.content.setErr(fmt.Errorf("%w: GET chapters", ports.ErrFetchTimeout))
	rr := api.do(http.MethodGet, "/api/v1/chapters", nil)
	expectError(t, rr, http.StatusGatewayTimeout, app.CodeFetchTimeout)
	if body := decodeBody[errorBody](t, rr); !body.Retry {
		t.Fatalf("provider timeout should be retryable: %s", rr.Body.String())
	}

	api.content.setErr(fmt.Errorf("%w: status 500", ports.ErrFetchFailed))
	expectError(t, api.do(http.MethodPost, "/api/v1/reader/open", map[string]int{"chapter": 2}), http.StatusBadGateway, app.CodeFetchFailed)

	api.content.setErr(nil)
	rr = api.do(http.MethodGet, "/api/v1/chapters", nil)
	if list := decodeBody[[]domain.Chapter](t, rr); rr.Code != http.StatusOK || len(list) != 2 {
		t.Fatalf("chapters: %d %v", rr.Code, list)
	}
}

func TestRouter_DailyFallsBack(t *testing.T) {
	api := newTestAPI(t, stubTimings{})
	rr := api.do(http.MethodGet, "/api/v1/daily", nil)
	v := decodeBody[app.DailyVerse](t, rr)
	if rr.Code != http.StatusOK || !v.Fallback || v.Reference != "Al-Fatihah, Ayah 1" {
		t.Fatalf("daily: %d %+v", rr.Code, v)
	}
}

func TestRouter_PrayerTimes(t *testing.T) {
	api := newTestAPI(t, stubTimings{})

	rr := api.do(http.MethodGet, "/api/v1/prayer-times?lat=21.42&lon=39.83", nil)
	times := decodeBody[app.PrayerTimes](t, rr)
	if rr.Code != http.StatusOK || times.LocationSource != app.LocationExplicit || len(times.Prayers) != 5 {
		t.Fatalf("prayer-times: %d %+v", rr.Code, times)
	}
	if times.Prayers[0].Display != "5:00 AM" || times.Prayers[4].Display != "8:00 PM" {
		t.Fatalf("unexpected display: %+v", times.Prayers)
	}

	rr = api.do(http.MethodGet, "/api/v1/prayer-times", nil)
	if times := decodeBody[app.PrayerTimes](t, rr); times.LocationSource != app.LocationFallback || times.Location != domain.DefaultCoordinates {
		t.Fatalf("fallback: %+v", times)
	}

	for _, q := range []string{"lat=10", "lon=10", "lat=91&lon=0", "lat=0&lon=181", "lat=a&lon=b"} {
		expectError(t, api.do(http.MethodGet, "/api/v1/prayer-times?"+q, nil), http.StatusBadRequest, app.CodeInvalidParams)
	}

	failing := newTestAPI(t, stubTimings{err: errors.New("upstream")})
	expectError(t, failing.do(http.MethodGet, "/api/v1/prayer-times", nil), http.StatusBadGateway, app.CodeFetchFailed)
}

func TestRouter_Search(t *testing.T) {
	api := newTestAPI(t, stubTimings{})

	rr := api.do(http.MethodGet, "/api/v1/search?q=sincer", nil)
	res := decodeBody[app.SearchResults](t, rr)
	if rr.Code != http.StatusOK || len(res.Hits) != 1 || res.Hits[0].Chapter.Number != 112 {
		t.Fatalf("search: %d %+v", rr.Code, res)
	}

	rr = api.do(http.MethodPost, "/api/v1/search/typeahead", map[string]string{"query": "open"})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("typeahead: %d %s", rr.Code, rr.Body.String())
	}
}

func TestRouter_CommandsAndJobs(t *testing.T) {
	api := newTestAPI(t, stubTimings{})

	expectError(t, api.do(http.MethodPost, "/api/v1/commands", map[string]string{"action": "rewind"}), http.StatusBadRequest, app.CodeInvalidParams)
	rr := api.do(http.MethodPost, "/api/v1/commands", map[string]any{"action": "open", "chapter": 1})
	if view := decodeBody[app.ReaderView](t, rr); rr.Code != http.StatusOK || view.Chapter == nil {
		t.Fatalf("command open: %d %s", rr.Code, rr.Body.String())
	}

	rr = api.do(http.MethodPost, "/api/v1/jobs", map[string]any{"type": "prefetch", "params": map[string]int{"chapter": 1}})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create job: %d %s", rr.Code, rr.Body.String())
	}
	job := decodeBody[app.JobDTO](t, rr)

	rr = api.do(http.MethodPost, "/api/v1/jobs/"+job.ID+"/cancel", nil)
	if got := decodeBody[app.JobDTO](t, rr); got.State != domain.JobCanceled {
		t.Fatalf("cancel: %+v", got)
	}
	expectError(t, api.do(http.MethodGet, "/api/v1/jobs/nope", nil), http.StatusNotFound, "not_found")
	expectError(t, api.do(http.MethodPost, "/api/v1/jobs", map[string]any{"type": "prefetch", "params": map[string]int{"chapter": 999}}), http.StatusBadRequest, app.CodeInvalidParams)

	rr = api.do(http.MethodPost, "/api/v1/prefetch/36?reciter=ar.husary", nil)
	if rr.Code != http.StatusCreated || !strings.HasPrefix(rr.Header().Get("Location"), "/api/v1/jobs/") {
		t.Fatalf("prefetch shortcut: %d %s", rr.Code, rr.Body.String())
	}
	shortcut := decodeBody[app.JobDTO](t, rr)
	if shortcut.Type != domain.JobTypePrefetch || !strings.Contains(string(shortcut.Params), `"reciter":"ar.husary"`) {
		t.Fatalf("prefetch shortcut job: %+v", shortcut)
	}
	expectError(t, api.do(http.MethodPost, "/api/v1/prefetch/abc", nil), http.StatusBadRequest, app.CodeInvalidParams)
	if rr := api.do(http.MethodGet, "/api/v1/jobs?limit=1", nil); rr.Code != http.StatusOK || len(decodeBody[[]app.JobDTO](t, rr)) != 1 {
		t.Fatalf("list jobs with limit: %d %s", rr.Code, rr.Body.String())
	}
	expectError(t, api.do(http.MethodGet, "/api/v1/jobs?limit=-2", nil), http.StatusBadRequest, app.CodeInvalidParams)
}

func TestRouter_Offline(t *testing.T) {
	api := newTestAPI(t, stubTimings{})
	if _, err := api.offline.Upsert(t.Context(), domain.OfflineChapter{Chapter: 36, Reciter: "ar.alafasy", Verses: 83, Directory: "/tmp/x", UpdatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	rr := api.do(http.MethodGet, "/api/v1/offline", nil)
	list := decodeBody[[]domain.OfflineChapter](t, rr)
	if rr.Code != http.StatusOK || len(list) != 1 || list[0].Chapter != 36 {
		t.Fatalf("offline: %d %+v", rr.Code, list)
	}
}

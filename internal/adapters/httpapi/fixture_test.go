package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/audio"
	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/memorybus"
	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/sqlite"
	"github.com/Guilhem-Bonnet/hidaya/internal/app"
	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
)

// stubContent: sourate n a 3 versets, le verset 3 n'a pas d'audio.
type stubContent struct {
	mu  sync.Mutex
	err error
}

func (s *stubContent) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func (s *stubContent) Chapters(ctx context.Context) ([]domain.Chapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return []domain.Chapter{
		{Number: 1, EnglishName: "Al-Faatiha", EnglishNameTranslation: "The Opening", NumberOfAyahs: 3},
		{Number: 112, EnglishName: "Al-Ikhlaas", EnglishNameTranslation: "Sincerity", NumberOfAyahs: 3},
	}, nil
}

func (s *stubContent) ChapterEdition(ctx context.Context, number int, edition string) (domain.ChapterEdition, error) {
	s.mu.Lock()
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return domain.ChapterEdition{}, err
	}
	out := domain.ChapterEdition{Chapter: domain.Chapter{Number: number, EnglishName: fmt.Sprintf("Surah %d", number), NumberOfAyahs: 3}, Edition: edition}
	for k := 1; k <= 3; k++ {
		v := domain.VerseText{Number: number*1000 + k, NumberInSurah: k, Text: fmt.Sprintf("%s %d:%d", edition, number, k)}
		if k < 3 {
			v.Audio = fmt.Sprintf("https://cdn.example/%s/%d.mp3", edition, v.Number)
		}
		out.Verses = append(out.Verses, v)
	}
	return out, nil
}

func (s *stubContent) VerseEditions(ctx context.Context, number int, editions []string) ([]domain.VerseText, error) {
	return nil, errors.New("unavailable")
}

type stubTimings struct {
	err error
}

func (s stubTimings) Timings(ctx context.Context, at domain.Coordinates, date time.Time) (domain.Timings, error) {
	return domain.Timings{Fajr: "05:00", Dhuhr: "12:30", Asr: "15:45", Maghrib: "18:20", Isha: "20:00"}, s.err
}

type testAPI struct {
	t       *testing.T
	handler http.Handler
	content *stubContent
	player  *app.PlaybackController
	offline *sqlite.OfflineRepository
}

func newTestAPI(t *testing.T, timings stubTimings) *testAPI {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := zerolog.Nop()
	bus := memorybus.New()
	t.Cleanup(bus.Close)

	content := &stubContent{}
	settingsSvc := app.NewSettingsService(sqlite.NewSettingsRepository(db.X), bus)
	player := app.NewPlaybackController(logger, audio.NewNull(), bus)
	reader := app.NewReader(logger, content, settingsSvc.Get, player, app.ReaderOptions{Bus: bus})
	settingsSvc.OnChange(app.ApplySettings(logger, reader, player))
	search := app.NewSearchService(logger, reader, bus, 10*time.Millisecond)
	t.Cleanup(search.Close)
	offline := sqlite.NewOfflineRepository(db.X)

	srv := NewServer(logger, Deps{
		Jobs:     app.NewJobService(sqlite.NewJobsRepository(db.X), bus),
		Settings: settingsSvc,
		Reader:   reader,
		Player:   player,
		Search:   search,
		Daily:    app.NewDailyVerseService(logger, content, ""),
		Prayer:   app.NewPrayerService(logger, timings, nil, app.PrayerServiceOptions{Bus: bus}),
		Commands: app.NewDispatcher(reader, player, settingsSvc),
		Offline:  offline,
		Bus:      bus,
		Store:    db,
	})
	return &testAPI{t: t, handler: srv.Router(), content: content, player: player, offline: offline}
}

func (a *testAPI) do(method, path string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	a.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Retry bool   `json:"retry"`
}

func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
	if body := decodeBody[errorBody](t, rr); body.Code != code {
		t.Fatalf("expected code %q, got %q (%s)", code, body.Code, body.Error)
	}
}

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

type JobExecutor interface {
	Execute(ctx context.Context, job domain.Job, env ExecEnv) error
}

type ExecEnv struct {
	UpdateProgress func(progress float64) error
	UpdateResult   func(result []byte) error
	IsCanceled     func() (bool, error)
}

type ExecutorRegistry struct {
	byType map[string]JobExecutor
}

// NewExecutorRegistry part toujours du "noop" puis ajoute (ou remplace) les exécuteurs fournis.
func NewExecutorRegistry(execs map[string]JobExecutor) ExecutorRegistry {
	byType := map[string]JobExecutor{domain.JobTypeNoop: NoopExecutor{}}
	for k, v := range execs {
		if v != nil {
			byType[k] = v
		}
	}
	return ExecutorRegistry{byType: byType}
}

func (r ExecutorRegistry) Get(jobType string) (JobExecutor, bool) {
	ex, ok := r.byType[jobType]
	return ex, ok
}

type NoopExecutor struct{}

func (NoopExecutor) Execute(ctx context.Context, job domain.Job, env ExecEnv) error {
	canceled, err := env.IsCanceled()
	if err != nil {
		return err
	}
	if canceled {
		return nil
	}
	return env.UpdateProgress(1)
}

type PrefetchParams struct {
	Chapter int    `json:"chapter"`
	Reciter string `json:"reciter,omitempty"`
}

type PrefetchResult struct {
	Chapter    int    `json:"chapter"`
	Reciter    string `json:"reciter"`
	Verses     int    `json:"verses"`
	Downloaded int    `json:"downloaded"`
	Existing   int    `json:"existing"`
	Skipped    int    `json:"skipped"`
	Directory  string `json:"directory"`
}

func ParsePrefetchParams(raw json.RawMessage) (PrefetchParams, error) {
	var p PrefetchParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return p, coded(CodeInvalidParams, "invalid prefetch params", err)
		}
	}
	if !domain.ValidChapterNumber(p.Chapter) {
		return p, coded(CodeInvalidParams, fmt.Sprintf("params.chapter must be in [1, %d]", domain.TotalChapters), nil)
	}
	p.Reciter = strings.TrimSpace(p.Reciter)
	if p.Reciter == "" {
		p.Reciter = domain.DefaultReciter
	}
	return p, nil
}

// PrefetchExecutor télécharge l'audio de toute une sourate dans la bibliothèque hors-ligne.
// Le nombre de téléchargements simultanés est borné par Limiter.
type PrefetchExecutor struct {
	Content ports.ContentProvider
	Library *OfflineLibrary
	Limiter *DynamicLimiter
	Client  *http.Client
}

func (e PrefetchExecutor) Execute(ctx context.Context, job domain.Job, env ExecEnv) error {
	p, err := ParsePrefetchParams(job.ParamsJSON)
	if err != nil {
		return err
	}
	if e.Content == nil || e.Library == nil {
		return coded(CodeInvalidParams, "prefetch is not configured", nil)
	}

	edition, err := e.Content.ChapterEdition(ctx, p.Chapter, p.Reciter)
	if err != nil {
		return fetchError(fmt.Sprintf("failed to load chapter %d", p.Chapter), err)
	}

	dir := e.Library.Dir(p.Reciter)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return coded(CodeIOError, "failed to create offline directory", err)
	}

	limiter := e.Limiter
	if limiter == nil {
		limiter = NewDynamicLimiter(2)
	}
	client := e.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Minute}
	}

	res := PrefetchResult{Chapter: p.Chapter, Reciter: p.Reciter, Verses: len(edition.Verses), Directory: dir}
	var (
		mu   sync.Mutex
		done int
	)
	// Annulation coopérative: un job annulé coupe les téléchargements en cours.
	gctx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCanceled := errors.New("job canceled")

	g, gctx := errgroup.WithContext(gctx)
	for _, v := range edition.Verses {
		locator := v.AudioLocator()
		if locator == "" {
			res.Skipped++
			continue
		}
		g.Go(func() error {
			return limiter.Do(gctx, func() error {
				canceled, err := env.IsCanceled()
				if err != nil {
					return err
				}
				if canceled {
					return errCanceled
				}

				dst := e.Library.Path(p.Reciter, v.Number)
				existing := false
				if st, err := os.Stat(dst); err == nil && st.Size() > 0 {
					existing = true
				} else if err := downloadToFile(gctx, client, locator, dst); err != nil {
					return err
				}

				mu.Lock()
				if existing {
					res.Existing++
				} else {
					res.Downloaded++
				}
				done++
				progress := float64(done) / float64(len(edition.Verses))
				mu.Unlock()
				return env.UpdateProgress(progress)
			})
		})
	}
	if err := g.Wait(); err != nil {
		if errors.Is(err, errCanceled) {
			return nil
		}
		return err
	}

	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	if env.UpdateResult != nil {
		return env.UpdateResult(b)
	}
	return nil
}

func downloadToFile(ctx context.Context, client *http.Client, rawURL string, dst string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return coded(CodeInvalidParams, "invalid audio url", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return coded(CodeNetworkError, "failed to build request", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return coded(CodeNetworkError, "audio download failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return coded(CodeHTTPStatus, fmt.Sprintf("audio download returned %d", resp.StatusCode), nil)
	}

	// Écriture atomique: fichier temporaire puis rename.
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".part-*")
	if err != nil {
		return coded(CodeIOError, "failed to create temp file", err)
	}
	tmpName := tmp.Name()
	_, err = io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return coded(CodeIOError, "failed to write audio file", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return coded(CodeIOError, "failed to move audio file", err)
	}
	return nil
}

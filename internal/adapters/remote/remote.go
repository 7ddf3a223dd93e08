// Package remote regroupe l'appel HTTP+JSON commun aux fournisseurs distants
// (contenu, horaires de prière, géolocalisation).
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

const DefaultTimeout = 10 * time.Second

// NewClient renvoie un client HTTP avec l'échéance par requête donnée (10 s par défaut).
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// GetJSON décode la réponse dans out. Les erreurs enveloppent ports.ErrFetchTimeout
// (échéance dépassée) ou ports.ErrFetchFailed (réseau, statut non 2xx, JSON invalide).
func GetJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: GET %s: %v", ports.ErrFetchTimeout, url, err)
		}
		return fmt.Errorf("%w: GET %s: %v", ports.ErrFetchFailed, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return fmt.Errorf("%w: GET %s: status %d", ports.ErrFetchFailed, url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: GET %s: %v", ports.ErrFetchTimeout, url, err)
		}
		return fmt.Errorf("%w: GET %s: invalid json: %v", ports.ErrFetchFailed, url, err)
	}
	return nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

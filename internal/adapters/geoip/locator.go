// Package geoip résout une position approximative à partir de l'adresse IP publique.
package geoip

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/remote"
	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

const DefaultEndpoint = "http://ip-api.com/json"

type Locator struct {
	endpoint string
	client   *http.Client
}

func New(timeout time.Duration) *Locator {
	return &Locator{endpoint: DefaultEndpoint, client: remote.NewClient(timeout)}
}

func (l *Locator) WithEndpoint(endpoint string) *Locator {
	if e := strings.TrimSpace(endpoint); e != "" {
		l.endpoint = e
	}
	return l
}

type lookupResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (l *Locator) Locate(ctx context.Context) (domain.Coordinates, error) {
	var out lookupResponse
	if err := remote.GetJSON(ctx, l.client, l.endpoint, &out); err != nil {
		return domain.Coordinates{}, err
	}
	if out.Status != "success" {
		return domain.Coordinates{}, fmt.Errorf("%w: geoip lookup: %s", ports.ErrFetchFailed, out.Message)
	}
	return domain.Coordinates{Latitude: out.Lat, Longitude: out.Lon}, nil
}

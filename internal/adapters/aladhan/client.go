// Package aladhan implémente ports.PrayerTimeProvider sur l'API aladhan.com.
package aladhan

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/remote"
	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

const (
	DefaultEndpoint = "https://api.aladhan.com/v1"
	// Méthode de calcul 2 = ISNA.
	DefaultMethod = 2
)

type Client struct {
	endpoint string
	method   int
	client   *http.Client
}

func New(timeout time.Duration) *Client {
	return &Client{endpoint: DefaultEndpoint, method: DefaultMethod, client: remote.NewClient(timeout)}
}

func (c *Client) WithEndpoint(endpoint string) *Client {
	if e := strings.TrimRight(strings.TrimSpace(endpoint), "/"); e != "" {
		c.endpoint = e
	}
	return c
}

func (c *Client) WithMethod(method int) *Client {
	if method >= 0 {
		c.method = method
	}
	return c
}

type timingsResponse struct {
	Code int `json:"code"`
	Data struct {
		Timings map[string]string `json:"timings"`
	} `json:"data"`
}

func (c *Client) Timings(ctx context.Context, at domain.Coordinates, date time.Time) (domain.Timings, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	q.Set("method", strconv.Itoa(c.method))
	u := fmt.Sprintf("%s/timings/%d?%s", c.endpoint, date.Unix(), q.Encode())

	var out timingsResponse
	if err := remote.GetJSON(ctx, c.client, u, &out); err != nil {
		return domain.Timings{}, err
	}
	t := out.Data.Timings
	for _, name := range []string{"Fajr", "Dhuhr", "Asr", "Maghrib", "Isha"} {
		if clock(t[name]) == "" {
			return domain.Timings{}, fmt.Errorf("%w: timings response without %s", ports.ErrFetchFailed, name)
		}
	}
	return domain.Timings{
		Fajr:    clock(t["Fajr"]),
		Dhuhr:   clock(t["Dhuhr"]),
		Asr:     clock(t["Asr"]),
		Maghrib: clock(t["Maghrib"]),
		Isha:    clock(t["Isha"]),
	}, nil
}

// clock garde "HH:MM" et retire un éventuel suffixe de fuseau ("05:12 (BST)").
func clock(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	return s
}

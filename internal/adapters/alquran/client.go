// Package alquran implémente ports.ContentProvider sur l'API publique alquran.cloud.
package alquran

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Guilhem-Bonnet/hidaya/internal/adapters/remote"
	"github.com/Guilhem-Bonnet/hidaya/internal/domain"
	"github.com/Guilhem-Bonnet/hidaya/internal/ports"
)

const DefaultEndpoint = "https://api.alquran.cloud/v1"

type Client struct {
	endpoint string
	client   *http.Client
}

func New(timeout time.Duration) *Client {
	return &Client{endpoint: DefaultEndpoint, client: remote.NewClient(timeout)}
}

func (c *Client) WithEndpoint(endpoint string) *Client {
	if e := strings.TrimRight(strings.TrimSpace(endpoint), "/"); e != "" {
		c.endpoint = e
	}
	return c
}

// envelope est la forme commune des réponses: {code, status, data}.
type envelope[T any] struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   T      `json:"data"`
}

type wireEdition struct {
	Identifier string `json:"identifier"`
}

type wireChapterEdition struct {
	domain.Chapter
	Ayahs   []domain.VerseText `json:"ayahs"`
	Edition wireEdition        `json:"edition"`
}

type wireVerse struct {
	domain.VerseText
	Edition wireEdition `json:"edition"`
}

func (c *Client) Chapters(ctx context.Context) ([]domain.Chapter, error) {
	var out envelope[[]domain.Chapter]
	if err := c.get(ctx, "/surah", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) ChapterEdition(ctx context.Context, number int, edition string) (domain.ChapterEdition, error) {
	if !domain.ValidChapterNumber(number) {
		return domain.ChapterEdition{}, fmt.Errorf("%w: chapter %d out of range", ports.ErrFetchFailed, number)
	}
	var out envelope[wireChapterEdition]
	path := fmt.Sprintf("/surah/%d/%s", number, url.PathEscape(edition))
	if err := c.get(ctx, path, &out); err != nil {
		return domain.ChapterEdition{}, err
	}
	ed := out.Data.Edition.Identifier
	if ed == "" {
		ed = edition
	}
	return domain.ChapterEdition{Chapter: out.Data.Chapter, Edition: ed, Verses: out.Data.Ayahs}, nil
}

func (c *Client) VerseEditions(ctx context.Context, number int, editions []string) ([]domain.VerseText, error) {
	if !domain.ValidVerseNumber(number) {
		return nil, fmt.Errorf("%w: verse %d out of range", ports.ErrFetchFailed, number)
	}
	escaped := make([]string, 0, len(editions))
	for _, e := range editions {
		escaped = append(escaped, url.PathEscape(e))
	}
	var out envelope[[]wireVerse]
	path := fmt.Sprintf("/ayah/%d/editions/%s", number, strings.Join(escaped, ","))
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}

	// Réordonne selon la demande; l'API renvoie normalement le même ordre.
	byEdition := make(map[string]domain.VerseText, len(out.Data))
	for _, v := range out.Data {
		byEdition[v.Edition.Identifier] = v.VerseText
	}
	texts := make([]domain.VerseText, 0, len(editions))
	for i, e := range editions {
		if v, ok := byEdition[e]; ok {
			texts = append(texts, v)
		} else if i < len(out.Data) {
			texts = append(texts, out.Data[i].VerseText)
		}
	}
	return texts, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return remote.GetJSON(ctx, c.client, c.endpoint+path, out)
}

// Package prisonersearch calls the prisoner-search service, the system of
// record for who exists and where they are held.
package prisonersearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"custodyprofile/pkg/platform/sentinel"
)

// Client queries prisoner-search over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type prisoner struct {
	PrisonerNumber string `json:"prisonerNumber"`
	PrisonID       string `json:"prisonId"`
}

func (c *Client) get(ctx context.Context, personID string) (*prisoner, error) {
	url := c.baseURL + "/prisoner/" + personID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build prisoner-search request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prisoner-search request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, sentinel.ErrNotFound
	default:
		return nil, fmt.Errorf("prisoner-search returned %s", resp.Status)
	}

	var p prisoner
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode prisoner-search response: %w", err)
	}
	return &p, nil
}

// Exists reports whether the identifier is known to prisoner-search.
func (c *Client) Exists(ctx context.Context, personID string) (bool, error) {
	_, err := c.get(ctx, personID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// PrisonIDFor returns the person's current establishment, used to enrich
// telemetry events. sentinel.ErrNotFound when the person is unknown.
func (c *Client) PrisonIDFor(ctx context.Context, personID string) (string, error) {
	p, err := c.get(ctx, personID)
	if err != nil {
		return "", err
	}
	return p.PrisonID, nil
}

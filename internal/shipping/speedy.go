// Package shipping proxies the Speedy courier location API used by the
// storefront's address autocomplete.
package shipping

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sofia-padel/api/internal/platform/config"
)

var (
	// ErrSpeedyInvalidInput indicates a missing or malformed lookup argument.
	ErrSpeedyInvalidInput = errors.New("shipping: invalid input")
	// ErrSpeedyUnavailable indicates the courier API could not be reached or
	// answered with a non-success status.
	ErrSpeedyUnavailable = errors.New("shipping: courier api unavailable")
)

// Site is a settlement (city or town) known to the courier.
type Site struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	NameEN       string `json:"nameEn"`
	Type         string `json:"type"`
	Municipality string `json:"municipality,omitempty"`
	Region       string `json:"region,omitempty"`
	PostCode     string `json:"postCode,omitempty"`
}

// Street is a street within a site.
type Street struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	NameEN string `json:"nameEn"`
	Type   string `json:"type"`
	SiteID int64  `json:"siteId"`
}

// LocationClient looks up courier sites and streets for address autocomplete.
type LocationClient interface {
	SearchSites(ctx context.Context, term string) ([]Site, error)
	SearchStreets(ctx context.Context, siteID int64, term string) ([]Street, error)
}

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SpeedyClientDeps carries dependencies for the Speedy location client.
type SpeedyClientDeps struct {
	Config config.SpeedyConfig
	// HTTPClient overrides the default client, primarily for tests.
	HTTPClient httpDoer
}

type speedyClient struct {
	baseURL  string
	username string
	password string
	language string
	http     httpDoer
}

// NewSpeedyClient builds a LocationClient talking to the Speedy REST API.
func NewSpeedyClient(deps SpeedyClientDeps) (LocationClient, error) {
	if !deps.Config.Enabled() {
		return nil, errors.New("shipping: speedy credentials are not configured")
	}

	httpClient := deps.HTTPClient
	if httpClient == nil {
		timeout := deps.Config.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &speedyClient{
		baseURL:  strings.TrimRight(deps.Config.BaseURL, "/"),
		username: deps.Config.Username,
		password: deps.Config.Password,
		language: deps.Config.Language,
		http:     httpClient,
	}, nil
}

func (c *speedyClient) SearchSites(ctx context.Context, term string) ([]Site, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: search term is required", ErrSpeedyInvalidInput)
	}

	payload := map[string]any{
		"userName": c.username,
		"password": c.password,
		"language": c.language,
		"name":     term,
	}

	var out struct {
		Sites []Site `json:"sites"`
	}
	if err := c.post(ctx, "/location/site/", payload, &out); err != nil {
		return nil, err
	}
	return out.Sites, nil
}

func (c *speedyClient) SearchStreets(ctx context.Context, siteID int64, term string) ([]Street, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: search term is required", ErrSpeedyInvalidInput)
	}
	if siteID <= 0 {
		return nil, fmt.Errorf("%w: site id is required", ErrSpeedyInvalidInput)
	}

	payload := map[string]any{
		"userName": c.username,
		"password": c.password,
		"language": c.language,
		"siteId":   siteID,
		"name":     term,
	}

	var out struct {
		Streets []Street `json:"streets"`
	}
	if err := c.post(ctx, "/location/street/", payload, &out); err != nil {
		return nil, err
	}
	return out.Streets, nil
}

func (c *speedyClient) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("shipping: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("shipping: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSpeedyUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: status %d", ErrSpeedyUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrSpeedyUnavailable, err)
	}
	return nil
}

// Package adintel enriches a research run with paid advertising intelligence
// from the Meta Ad Library, degrading to a deterministic fallback when the
// API is unusable.
package adintel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/FranksOps/dossier/pkg/httpclient"
	"github.com/FranksOps/dossier/pkg/ratelimit"
)

// Typed failures for the enricher's mode decision.
var (
	ErrCredentialInvalid = errors.New("ad library credential invalid")
	ErrRateLimited       = errors.New("ad library rate limited")
	ErrUnavailable       = errors.New("ad library unavailable")
)

// APIError carries the error payload the Graph API returns.
type APIError struct {
	StatusCode int
	Code       int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ad library api error (http %d, code %d, %s): %s", e.StatusCode, e.Code, e.Type, e.Message)
}

// adFields is the field list requested per ad.
const adFields = "id,page_name,ad_delivery_start_time,ad_delivery_stop_time," +
	"ad_creative_bodies,ad_creative_link_titles,publisher_platforms"

// ad mirrors one entry of the ads_archive response.
type ad struct {
	ID                 string   `json:"id"`
	PageName           string   `json:"page_name"`
	StartTime          string   `json:"ad_delivery_start_time"`
	StopTime           string   `json:"ad_delivery_stop_time"`
	CreativeBodies     []string `json:"ad_creative_bodies"`
	CreativeLinkTitles []string `json:"ad_creative_link_titles"`
	PublisherPlatforms []string `json:"publisher_platforms"`
}

// Counts aggregates the ads found for a company.
type Counts struct {
	TotalAds         int            `json:"total_ads"`
	ActiveAds        int            `json:"active_ads"`
	Platforms        map[string]int `json:"platforms"`
	CreativeVariants int            `json:"creative_variants"`
	ABTestEvidence   bool           `json:"ab_test_evidence"`
}

// ClientConfig configures the Meta Ad Library client.
type ClientConfig struct {
	AccessToken string
	// APIVersion of the Graph API, defaulting to v18.0.
	APIVersion string
	// Countries filters ads by reach, defaulting to US.
	Countries []string
	// MaxAds caps how many ads are aggregated across pages.
	MaxAds int
	// BaseURL overrides the Graph API host, used by tests.
	BaseURL string

	Limiter *ratelimit.Limiter
}

// MetaClient queries the ads_archive endpoint of the Graph API.
type MetaClient struct {
	cfg  ClientConfig
	http *httpclient.Client
}

// NewMetaClient builds a client. The access token may be empty; the caller
// checks HasCredential before fetching.
func NewMetaClient(cfg ClientConfig, hc *httpclient.Client) (*MetaClient, error) {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "v18.0"
	}
	if len(cfg.Countries) == 0 {
		cfg.Countries = []string{"US"}
	}
	if cfg.MaxAds <= 0 {
		cfg.MaxAds = 250
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://graph.facebook.com"
	}

	if hc == nil {
		var err error
		hc, err = httpclient.New(httpclient.Config{Timeout: 30 * time.Second})
		if err != nil {
			return nil, err
		}
	}

	return &MetaClient{cfg: cfg, http: hc}, nil
}

// HasCredential reports whether an access token is configured.
func (c *MetaClient) HasCredential() bool {
	return c.cfg.AccessToken != ""
}

// FetchAds searches the ad archive for the company and aggregates the pages
// into counts. Credential failures come back wrapped as terminal so retry
// policies stop immediately; rate limits and outages stay retryable.
func (c *MetaClient) FetchAds(ctx context.Context, companyKey string) (Counts, error) {
	counts := Counts{Platforms: make(map[string]int)}
	if !c.HasCredential() {
		return counts, ratelimit.Terminal(ErrCredentialInvalid)
	}

	countries, err := json.Marshal(c.cfg.Countries)
	if err != nil {
		return counts, fmt.Errorf("encoding countries filter: %w", err)
	}

	params := url.Values{}
	params.Set("access_token", c.cfg.AccessToken)
	params.Set("search_terms", companyKey)
	params.Set("ad_reached_countries", string(countries))
	params.Set("ad_active_status", "ALL")
	params.Set("fields", adFields)
	params.Set("limit", "100")

	next := fmt.Sprintf("%s/%s/ads_archive?%s", c.cfg.BaseURL, c.cfg.APIVersion, params.Encode())

	creativeSeen := make(map[string]struct{})
	for next != "" && counts.TotalAds < c.cfg.MaxAds {
		page, nextURL, err := c.fetchPage(ctx, next)
		if err != nil {
			return counts, err
		}

		for _, a := range page {
			counts.TotalAds++
			if a.StopTime == "" {
				counts.ActiveAds++
			}
			for _, p := range a.PublisherPlatforms {
				counts.Platforms[strings.ToLower(p)]++
			}
			for _, body := range a.CreativeBodies {
				creativeSeen[body] = struct{}{}
			}
			if len(a.CreativeBodies) > 1 {
				counts.ABTestEvidence = true
			}
			if counts.TotalAds >= c.cfg.MaxAds {
				break
			}
		}
		next = nextURL
	}

	counts.CreativeVariants = len(creativeSeen)
	return counts, nil
}

func (c *MetaClient) fetchPage(ctx context.Context, pageURL string) ([]ad, string, error) {
	if c.cfg.Limiter != nil {
		if err := c.cfg.Limiter.Wait(ctx); err != nil {
			return nil, "", err
		}
	}

	resp, err := c.http.Get(ctx, pageURL, "")
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("%w: reading response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, "", classifyError(resp.StatusCode, body)
	}

	var payload struct {
		Data   []ad `json:"data"`
		Paging struct {
			Next string `json:"next"`
		} `json:"paging"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, "", fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}

	return payload.Data, payload.Paging.Next, nil
}

// classifyError maps a Graph API error response onto the typed failures.
func classifyError(statusCode int, body []byte) error {
	var payload struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
			Code    int    `json:"code"`
		} `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)

	apiErr := &APIError{
		StatusCode: statusCode,
		Code:       payload.Error.Code,
		Type:       payload.Error.Type,
		Message:    payload.Error.Message,
	}

	switch {
	case payload.Error.Type == "OAuthException",
		statusCode == http.StatusUnauthorized,
		statusCode == http.StatusForbidden:
		return ratelimit.Terminal(fmt.Errorf("%w: %v", ErrCredentialInvalid, apiErr))

	// Graph API throttling codes: 4 application level, 17 user level,
	// 32 page level.
	case statusCode == http.StatusTooManyRequests,
		payload.Error.Code == 4, payload.Error.Code == 17, payload.Error.Code == 32:
		return fmt.Errorf("%w: %v", ErrRateLimited, apiErr)

	case statusCode >= 500:
		return fmt.Errorf("%w: %v", ErrUnavailable, apiErr)

	default:
		return apiErr
	}
}

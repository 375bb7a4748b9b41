package adintel

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/FranksOps/dossier/pkg/ratelimit"
)

func adLibraryServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	var base string
	mux.HandleFunc("/v18.0/ads_archive", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`)
			return
		}
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"data":[
				{"id":"3","page_name":"Acme","ad_delivery_start_time":"2026-01-01","ad_delivery_stop_time":"2026-02-01",
				 "ad_creative_bodies":["buy now"],"publisher_platforms":["instagram"]}
			],"paging":{}}`)
			return
		}
		fmt.Fprintf(w, `{"data":[
			{"id":"1","page_name":"Acme","ad_delivery_start_time":"2026-01-01",
			 "ad_creative_bodies":["buy now","act fast"],"publisher_platforms":["facebook","instagram"]},
			{"id":"2","page_name":"Acme","ad_delivery_start_time":"2026-01-05",
			 "ad_creative_bodies":["buy now"],"publisher_platforms":["facebook"]}
		],"paging":{"next":"%s/v18.0/ads_archive?access_token=tok&page=2"}}`, base)
	})

	ts := httptest.NewServer(mux)
	base = ts.URL
	t.Cleanup(ts.Close)
	return ts
}

func TestFetchAdsAggregation(t *testing.T) {
	ts := adLibraryServer(t)

	client, err := NewMetaClient(ClientConfig{
		AccessToken: "tok",
		BaseURL:     ts.URL,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counts, err := client.FetchAds(context.Background(), "acme corp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if counts.TotalAds != 3 {
		t.Errorf("TotalAds = %d, want 3 (across pages)", counts.TotalAds)
	}
	// Ads without a stop time count as active.
	if counts.ActiveAds != 2 {
		t.Errorf("ActiveAds = %d, want 2", counts.ActiveAds)
	}
	if counts.Platforms["facebook"] != 2 || counts.Platforms["instagram"] != 2 {
		t.Errorf("platform distribution = %v", counts.Platforms)
	}
	if counts.CreativeVariants != 2 {
		t.Errorf("CreativeVariants = %d, want 2 distinct bodies", counts.CreativeVariants)
	}
	if !counts.ABTestEvidence {
		t.Error("ad with multiple creative bodies should flag A/B evidence")
	}
}

func TestFetchAdsHonorsLimiter(t *testing.T) {
	ts := adLibraryServer(t)

	// 20 rps means one permit every 50ms; the two result pages need two.
	limiter := ratelimit.NewLimiter(20, 0)
	defer limiter.Stop()

	client, err := NewMetaClient(ClientConfig{
		AccessToken: "tok",
		BaseURL:     ts.URL,
		Limiter:     limiter,
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	start := time.Now()
	counts, err := client.FetchAds(context.Background(), "acme corp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if counts.TotalAds != 3 {
		t.Errorf("TotalAds = %d, want 3", counts.TotalAds)
	}

	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("two paced page fetches took %v, want at least ~100ms", elapsed)
	}
}

func TestFetchAdsCredentialInvalid(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Invalid OAuth access token","type":"OAuthException","code":190}}`)
	}))
	defer ts.Close()

	client, _ := NewMetaClient(ClientConfig{AccessToken: "bad", BaseURL: ts.URL}, nil)

	_, err := client.FetchAds(context.Background(), "acme corp")
	if !errors.Is(err, ErrCredentialInvalid) {
		t.Fatalf("err = %v, want ErrCredentialInvalid", err)
	}
	if !ratelimit.IsTerminal(err) {
		t.Error("credential failures must be terminal, not retried")
	}
}

func TestFetchAdsNoToken(t *testing.T) {
	client, _ := NewMetaClient(ClientConfig{}, nil)
	_, err := client.FetchAds(context.Background(), "acme corp")
	if !errors.Is(err, ErrCredentialInvalid) || !ratelimit.IsTerminal(err) {
		t.Errorf("missing token should be a terminal credential error, got %v", err)
	}
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   error
	}{
		{401, `{"error":{"type":"OAuthException","code":190}}`, ErrCredentialInvalid},
		{403, `{}`, ErrCredentialInvalid},
		{429, `{}`, ErrRateLimited},
		{400, `{"error":{"code":4}}`, ErrRateLimited},
		{400, `{"error":{"code":17}}`, ErrRateLimited},
		{500, `{}`, ErrUnavailable},
	}

	for _, c := range cases {
		err := classifyError(c.status, []byte(c.body))
		if !errors.Is(err, c.want) {
			t.Errorf("classifyError(%d, %s) = %v, want %v", c.status, c.body, err, c.want)
		}
	}

	// Unclassified errors surface the raw API error.
	var apiErr *APIError
	err := classifyError(400, []byte(`{"error":{"code":100,"message":"bad param"}}`))
	if !errors.As(err, &apiErr) || apiErr.Code != 100 {
		t.Errorf("unclassified error should be an APIError: %v", err)
	}
}

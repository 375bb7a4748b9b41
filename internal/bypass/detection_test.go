package bypass

import "testing"

func TestDetectCloudflare(t *testing.T) {
	// Not blocked
	if detected, _ := detectCloudflare(200, map[string][]string{"Server": {"nginx"}}, []byte("OK")); detected {
		t.Errorf("expected not detected")
	}

	// CF Server Header
	if detected, src := detectCloudflare(403, map[string][]string{"Server": {"cloudflare"}}, []byte("Access Denied")); !detected || src != "Cloudflare" {
		t.Errorf("expected Cloudflare detection by header")
	}

	// CF Body signature
	if detected, src := detectCloudflare(503, map[string][]string{}, []byte("<html>... cf-turnstile ...</html>")); !detected || src != "Cloudflare" {
		t.Errorf("expected Cloudflare detection by body")
	}
}

func TestDetectAkamai(t *testing.T) {
	if detected, src := detectAkamai(403, map[string][]string{"Server": {"AkamaiGHost"}}, nil); !detected || src != "Akamai" {
		t.Errorf("expected Akamai detection by header")
	}

	if detected, src := detectAkamai(403, map[string][]string{}, []byte("Access Denied... Reference #123.456")); !detected || src != "Akamai" {
		t.Errorf("expected Akamai detection by body")
	}
}

func TestDetectDataDome(t *testing.T) {
	if detected, src := detectDataDome(403, map[string][]string{"X-DataDome": {"1"}}, nil); !detected || src != "DataDome" {
		t.Errorf("expected DataDome detection by header")
	}

	if detected, src := detectDataDome(403, map[string][]string{}, []byte("script src='https://geo.captcha-delivery.com/...'")); !detected || src != "DataDome" {
		t.Errorf("expected DataDome detection by body")
	}
}

func TestDetectPerimeterX(t *testing.T) {
	if detected, src := detectPerimeterX(403, map[string][]string{"X-Px-Captcha": {"required"}}, nil); !detected || src != "PerimeterX" {
		t.Errorf("expected PerimeterX detection by header")
	}

	if detected, src := detectPerimeterX(403, map[string][]string{}, []byte("window._pxBlock = true;")); !detected || src != "PerimeterX" {
		t.Errorf("expected PerimeterX detection by body")
	}
}

func TestDetect(t *testing.T) {
	detected, src := Detect(403, map[string][]string{"X-DataDome": {"1"}}, nil)
	if !detected || src != "DataDome" {
		t.Errorf("expected DataDome, got %v %q", detected, src)
	}

	detected, src = Detect(200, map[string][]string{}, []byte("hello"))
	if detected || src != "" {
		t.Errorf("expected clean response, got %v %q", detected, src)
	}
}

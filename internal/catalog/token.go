package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// expiryMargin keeps a token from being used right at its deadline.
const expiryMargin = 5 * time.Minute

type cachedToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// TokenProvider manages the catalog API bearer token, cached in a file so
// repeated runs reuse it until near expiry.
type TokenProvider struct {
	publicKey  string
	privateKey string
	tokenURL   string
	cachePath  string
	client     *http.Client
}

// NewTokenProvider builds a provider caching to cachePath.
func NewTokenProvider(publicKey, privateKey, cachePath string) *TokenProvider {
	return &TokenProvider{
		publicKey:  publicKey,
		privateKey: privateKey,
		tokenURL:   "https://api.tcgplayer.com/token",
		cachePath:  cachePath,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// Token returns a valid bearer token, refreshing it when the cached one is
// missing or within the expiry margin. forceRefresh skips the cache.
func (p *TokenProvider) Token(forceRefresh bool) (string, error) {
	if !forceRefresh {
		if tok, ok := p.readCache(); ok {
			return tok, nil
		}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", p.publicKey)
	form.Set("client_secret", p.privateKey)

	resp, err := p.client.Post(p.tokenURL, "application/x-www-form-urlencoded",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}

	p.writeCache(cachedToken{
		AccessToken: body.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	})
	return body.AccessToken, nil
}

func (p *TokenProvider) readCache() (string, bool) {
	data, err := os.ReadFile(p.cachePath)
	if err != nil {
		return "", false
	}
	var tok cachedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return "", false
	}
	if tok.AccessToken == "" || time.Now().After(tok.ExpiresAt.Add(-expiryMargin)) {
		return "", false
	}
	return tok.AccessToken, true
}

func (p *TokenProvider) writeCache(tok cachedToken) {
	data, err := json.Marshal(tok)
	if err != nil {
		return
	}
	// Token files hold credentials; keep them owner-only.
	_ = os.WriteFile(p.cachePath, data, 0600)
}

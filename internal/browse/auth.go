package browse

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const tokenMargin = 5 * time.Minute

type cachedToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AppAuth fetches and file-caches the marketplace application token
// (client-credentials grant).
type AppAuth struct {
	clientID     string
	clientSecret string
	tokenURL     string
	scope        string
	cachePath    string
	client       *http.Client
}

// NewAppAuth builds an auth helper caching to cachePath.
func NewAppAuth(clientID, clientSecret, cachePath string) *AppAuth {
	return &AppAuth{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     "https://api.ebay.com/identity/v1/oauth2/token",
		scope:        "https://api.ebay.com/oauth/api_scope",
		cachePath:    cachePath,
		client:       &http.Client{Timeout: 30 * time.Second},
	}
}

// Token returns a valid application token, refreshing when the cached one
// is missing or near expiry.
func (a *AppAuth) Token(forceRefresh bool) (string, error) {
	if !forceRefresh {
		if tok, ok := a.readCache(); ok {
			return tok, nil
		}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", a.scope)

	req, err := http.NewRequest(http.MethodPost, a.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	basic := base64.StdEncoding.EncodeToString([]byte(a.clientID + ":" + a.clientSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting app token: %w", err)
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

	a.writeCache(cachedToken{
		AccessToken: body.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(body.ExpiresIn) * time.Second),
	})
	return body.AccessToken, nil
}

func (a *AppAuth) readCache() (string, bool) {
	data, err := os.ReadFile(a.cachePath)
	if err != nil {
		return "", false
	}
	var tok cachedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return "", false
	}
	if tok.AccessToken == "" || time.Now().After(tok.ExpiresAt.Add(-tokenMargin)) {
		return "", false
	}
	return tok.AccessToken, true
}

func (a *AppAuth) writeCache(tok cachedToken) {
	data, err := json.Marshal(tok)
	if err != nil {
		return
	}
	_ = os.WriteFile(a.cachePath, data, 0600)
}

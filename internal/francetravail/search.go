package francetravail

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/candigo/candigo/internal/source"
)

const searchPath = "/offres/search"

type searchResponse struct {
	Resultats []map[string]any `json:"resultats"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

// Name reports the source tag attached to every fetched payload.
func (c *Client) Name() string {
	return source.FranceTravail
}

// FetchPostings queries the search endpoint page by page until the
// query limit or the last page is reached. Payloads are returned as-is.
func (c *Client) FetchPostings(ctx context.Context, q source.Query) ([]source.RawPosting, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = pageSize
	}

	var raw []source.RawPosting
	for offset := 0; offset < limit; offset += pageSize {
		end := offset + pageSize - 1
		if end >= limit {
			end = limit - 1
		}

		page, err := c.searchPage(ctx, q, offset, end)
		if err != nil {
			return nil, err
		}

		for _, payload := range page {
			raw = append(raw, source.RawPosting{Source: source.FranceTravail, Payload: payload})
		}

		c.logger.Debug("fetched postings page",
			zap.Int("offset", offset),
			zap.Int("count", len(page)),
		)

		// A short page means the API ran out of results.
		if len(page) < pageSize {
			break
		}
	}

	if len(raw) > limit {
		raw = raw[:limit]
	}
	return raw, nil
}

func (c *Client) searchPage(ctx context.Context, q source.Query, from, to int) ([]map[string]any, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	if q.Terms != "" {
		params.Set("motsCles", q.Terms)
	}
	if q.Location != "" {
		params.Set("lieux", q.Location)
	}
	params.Set("range", fmt.Sprintf("%d-%d", from, to))
	params.Set("sort", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL+searchPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.URL.RawQuery = params.Encode()

	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	// 204 means no offers match; 206 is the normal paged answer.
	case http.StatusNoContent:
		return nil, nil
	case http.StatusOK, http.StatusPartialContent:
	default:
		return nil, fmt.Errorf("bad status: %s", resp.Status)
	}

	var response searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return response.Resultats, nil
}

// token returns a cached access token, refreshing it through the OAuth
// client-credentials flow when it is about to expire.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-30*time.Second)) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("scope", tokenScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("token endpoint returned %s: %s", resp.Status, string(body))
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned an empty access token")
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	c.logger.Debug("refreshed access token", zap.Int("expires_in", tok.ExpiresIn))

	return c.accessToken, nil
}

package francetravail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/candigo/candigo/internal/source"
)

func newTestClient(t *testing.T, search http.HandlerFunc) (*Client, *int32) {
	t.Helper()

	var tokenCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		if r.Method != http.MethodPost {
			t.Errorf("token request method = %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing token form: %v", err)
		}
		if r.PostForm.Get("grant_type") != "client_credentials" {
			t.Errorf("unexpected grant type: %s", r.PostForm.Get("grant_type"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "tok-123",
			"expires_in":   1499,
		})
	})
	mux.HandleFunc("/offres/search", search)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := New("client-id", "client-secret", zap.NewNop())
	c.APIURL = srv.URL
	c.TokenURL = srv.URL + "/token"
	return c, &tokenCalls
}

func TestFetchPostings(t *testing.T) {
	c, tokenCalls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("unexpected authorization header: %s", got)
		}
		if got := r.URL.Query().Get("motsCles"); got != "développeur go" {
			t.Errorf("unexpected motsCles: %s", got)
		}
		if got := r.URL.Query().Get("range"); got != "0-9" {
			t.Errorf("unexpected range: %s", got)
		}

		w.WriteHeader(http.StatusPartialContent)
		json.NewEncoder(w).Encode(map[string]any{
			"resultats": []map[string]any{
				{"id": "1", "intitule": "Développeur Go"},
				{"id": "2", "intitule": "Développeur Backend"},
			},
		})
	})

	raw, err := c.FetchPostings(context.Background(), source.Query{Terms: "développeur go", Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw) != 2 {
		t.Fatalf("expected 2 postings, got %d", len(raw))
	}
	for _, rp := range raw {
		if rp.Source != source.FranceTravail {
			t.Fatalf("unexpected source tag: %s", rp.Source)
		}
	}
	if raw[0].Payload["intitule"] != "Développeur Go" {
		t.Fatalf("payload not preserved: %v", raw[0].Payload)
	}
	if *tokenCalls != 1 {
		t.Fatalf("expected 1 token request, got %d", *tokenCalls)
	}
}

func TestFetchPostingsPaginates(t *testing.T) {
	var pages []string
	c, tokenCalls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rng := r.URL.Query().Get("range")
		pages = append(pages, rng)

		count := pageSize
		if rng != "0-49" {
			count = 10 // short page ends the pagination
		}
		results := make([]map[string]any, count)
		for i := range results {
			results[i] = map[string]any{"id": fmt.Sprintf("%s-%d", rng, i)}
		}
		w.WriteHeader(http.StatusPartialContent)
		json.NewEncoder(w).Encode(map[string]any{"resultats": results})
	})

	raw, err := c.FetchPostings(context.Background(), source.Query{Limit: 120})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw) != 60 {
		t.Fatalf("expected 60 postings, got %d", len(raw))
	}
	if len(pages) != 2 || pages[0] != "0-49" || pages[1] != "50-99" {
		t.Fatalf("unexpected page sequence: %v", pages)
	}
	// The token is fetched once and reused across pages.
	if *tokenCalls != 1 {
		t.Fatalf("expected 1 token request, got %d", *tokenCalls)
	}
}

func TestFetchPostingsNoContent(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	raw, err := c.FetchPostings(context.Background(), source.Query{Limit: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(raw) != 0 {
		t.Fatalf("expected no postings, got %d", len(raw))
	}
}

func TestFetchPostingsBadStatus(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	})

	if _, err := c.FetchPostings(context.Background(), source.Query{Limit: 10}); err == nil {
		t.Fatal("expected an error for a non-2xx search response")
	}
}

func TestTokenFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New("client-id", "wrong-secret", zap.NewNop())
	c.APIURL = srv.URL
	c.TokenURL = srv.URL + "/token"

	if _, err := c.FetchPostings(context.Background(), source.Query{Limit: 10}); err == nil {
		t.Fatal("expected a token error")
	}
}

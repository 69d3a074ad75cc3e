package music

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pindropapp/pindrop-backend/pkg/config"
	pkgerrors "github.com/pindropapp/pindrop-backend/pkg/errors"
)

func newMusicTestServer(t *testing.T, tokenCalls *int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client-id" || pass != "client-secret" {
			http.Error(w, "bad credentials", http.StatusUnauthorized)
			return
		}
		if r.FormValue("grant_type") != "client_credentials" {
			http.Error(w, "bad grant", http.StatusBadRequest)
			return
		}
		*tokenCalls++
		fmt.Fprintf(w, `{"access_token":"token-%d","expires_in":3600}`, *tokenCalls)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-1" {
			http.Error(w, "bad token", http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("type") != "track" {
			http.Error(w, "bad type", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{"tracks":{"items":[{
			"id":"t1",
			"name":"Song One",
			"artists":[{"name":"Artist A"},{"name":"Artist B"}],
			"album":{"name":"Album","images":[{"url":"http://img/large.png"}]},
			"preview_url":"http://preview/t1",
			"external_urls":{"spotify":"http://open/t1"}
		}]}}`)
	})
	return httptest.NewServer(mux)
}

func newMusicTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(config.MusicConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     server.URL + "/token",
		APIBaseURL:   server.URL,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestSearchTracksExchangesTokenAndMapsResults(t *testing.T) {
	tokenCalls := 0
	server := newMusicTestServer(t, &tokenCalls)
	defer server.Close()

	client := newMusicTestClient(t, server)

	tracks, err := client.SearchTracks(context.Background(), "song", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}

	track := tracks[0]
	if track.Name != "Song One" || track.Artist != "Artist A, Artist B" {
		t.Fatalf("unexpected mapping: %+v", track)
	}
	if track.ImageURL != "http://img/large.png" || track.URL != "http://open/t1" {
		t.Fatalf("unexpected urls: %+v", track)
	}
}

func TestSearchTracksReusesCachedToken(t *testing.T) {
	tokenCalls := 0
	server := newMusicTestServer(t, &tokenCalls)
	defer server.Close()

	client := newMusicTestClient(t, server)
	ctx := context.Background()

	if _, err := client.SearchTracks(ctx, "one", 5); err != nil {
		t.Fatalf("first search: %v", err)
	}
	if _, err := client.SearchTracks(ctx, "two", 5); err != nil {
		t.Fatalf("second search: %v", err)
	}
	if tokenCalls != 1 {
		t.Fatalf("expected a single token exchange, got %d", tokenCalls)
	}
}

func TestSearchTracksRefreshesExpiredToken(t *testing.T) {
	tokenCalls := 0
	server := newMusicTestServer(t, &tokenCalls)
	defer server.Close()

	client := newMusicTestClient(t, server)
	if _, err := client.token(context.Background()); err != nil {
		t.Fatalf("prime token: %v", err)
	}

	// Jump past the expiry so the next call must re-exchange.
	client.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := client.token(context.Background()); err != nil {
		t.Fatalf("refresh token: %v", err)
	}
	if tokenCalls != 2 {
		t.Fatalf("expected a second token exchange, got %d", tokenCalls)
	}
}

func TestSearchTracksRequiresQuery(t *testing.T) {
	tokenCalls := 0
	server := newMusicTestServer(t, &tokenCalls)
	defer server.Close()

	client := newMusicTestClient(t, server)

	_, err := client.SearchTracks(context.Background(), "   ", 10)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSearchTracksWrapsProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(config.MusicConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TokenURL:     server.URL + "/token",
		APIBaseURL:   server.URL,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.SearchTracks(context.Background(), "song", 10)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

package deezer

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"slices"
	"testing"

	"github.com/sydlexius/cytherea/internal/provider"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/search/artist":
			switch r.URL.Query().Get("q") {
			case "Burial":
				w.Write([]byte(`{"data":[
					{"id":11,"name":"Burial","nb_fan":100},
					{"id":12,"name":"burial","nb_fan":5000},
					{"id":13,"name":"Burial Hex","nb_fan":9000}],"total":3}`))
			case "Quota":
				w.Write([]byte(`{"error":{"type":"Exception","message":"Quota limit exceeded","code":4}}`))
			default:
				w.Write([]byte(`{"data":[],"total":0}`))
			}
		case "/artist/12/related":
			w.Write([]byte(`{"data":[{"id":1,"name":"Kode9"},{"id":2,"name":"Zomby"}]}`))
		case "/artist/12/top":
			w.Write([]byte(`{"data":[
				{"id":501,"title":"Archangel","readable":true},
				{"id":502,"title":"Blocked","readable":false},
				{"id":503,"title":"Near Dark","readable":true}]}`))
		default:
			w.Write([]byte(`{"error":{"type":"DataException","message":"no data","code":800}}`))
		}
	}))
}

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	limiter := provider.NewRateLimiterMap()
	limiter.SetLimit(provider.NameDeezer, 0)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewWithBaseURL(limiter, logger, baseURL)
}

func TestLookupSimilar(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	res, err := a.LookupSimilar(context.Background(), provider.Query{Name: "Burial"})
	if err != nil {
		t.Fatalf("LookupSimilar: %v", err)
	}
	if !slices.Equal(res.Value, []string{"Kode9", "Zomby"}) {
		t.Errorf("related = %v", res.Value)
	}
}

func TestLookupMedia(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	res, err := a.LookupMedia(context.Background(), provider.Query{Name: "Burial"})
	if err != nil {
		t.Fatalf("LookupMedia: %v", err)
	}
	if res.Value.ID != "501" || !slices.Equal(res.Value.Backups, []string{"503"}) {
		t.Errorf("media = %+v", res.Value)
	}
}

func TestLookupUnknownArtist(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	res, err := a.LookupMedia(context.Background(), provider.Query{Name: "Nobody Here"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != provider.OutcomeNoResult {
		t.Errorf("outcome = %s", res.Outcome)
	}
}

func TestQuotaError(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	if _, err := a.LookupSimilar(context.Background(), provider.Query{Name: "Quota"}); err == nil {
		t.Error("expected error for quota exceeded")
	}
}

func TestIsDeezerID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"12345", true},
		{"0", false},
		{"", false},
		{"a74b1b7f-71a5-4011-9441-d0b5e4122711", false},
	}
	for _, tt := range tests {
		if got := isDeezerID(tt.id); got != tt.want {
			t.Errorf("isDeezerID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

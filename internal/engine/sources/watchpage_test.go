package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anatolykoptev/go_highlights/internal/engine"
)

func TestWatchPageFetch(t *testing.T) {
	const json3Payload = `{"events":[{"tStartMs":0,"dDurationMs":2000,"segs":[{"utf8":"scraped caption"}]}]}`

	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/timedtext", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fmt") != "json3" {
			http.Error(w, "want json3", http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, json3Payload)
	})
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		page := `<html><script>var ytInitialPlayerResponse = {"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"` +
			srv.URL + `/timedtext?v=abc","languageCode":"en"}]}}};</script></html>`
		fmt.Fprint(w, page)
	})
	mux.HandleFunc("/nocaptions", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><script>var ytInitialPlayerResponse = {"playabilityStatus":{"reason":"unavailable"}};</script></html>`)
	})
	mux.HandleFunc("/nomarker", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>nothing here</body></html>`)
	})

	strategy := &WatchPage{Client: srv.Client(), Langs: []string{"en"}}
	ctx := context.Background()

	t.Run("scrapes caption track from page", func(t *testing.T) {
		payload, err := strategy.Fetch(ctx, engine.SourceRef{ID: "abc", URL: srv.URL + "/watch"})
		if err != nil {
			t.Fatalf("Fetch error: %v", err)
		}
		if string(payload) != json3Payload {
			t.Errorf("payload = %q", payload)
		}
		if engine.CountCues(engine.RawTranscript{Payload: payload, Format: strategy.Format()}) != 1 {
			t.Error("fetched payload should parse to one cue")
		}
	})

	t.Run("no captions in player response", func(t *testing.T) {
		_, err := strategy.Fetch(ctx, engine.SourceRef{ID: "abc", URL: srv.URL + "/nocaptions"})
		if err == nil || !strings.Contains(err.Error(), "unavailable") {
			t.Errorf("err = %v, want playability reason", err)
		}
	})

	t.Run("marker missing", func(t *testing.T) {
		_, err := strategy.Fetch(ctx, engine.SourceRef{ID: "abc", URL: srv.URL + "/nomarker"})
		if err == nil {
			t.Error("expected error when ytInitialPlayerResponse is absent")
		}
	})
}

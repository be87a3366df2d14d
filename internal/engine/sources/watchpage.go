package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/anatolykoptev/go_highlights/internal/engine"
)

// playerResponseMarker marks the start of the player response JSON
// embedded in watch page HTML.
const playerResponseMarker = "ytInitialPlayerResponse = "

// WatchPage scrapes the watch page HTML for the embedded player response
// and fetches a caption track from it. Works from IP ranges where the
// Innertube endpoints demand a login.
type WatchPage struct {
	Client *http.Client
	Langs  []string
}

func (s *WatchPage) Name() string   { return "watch_page" }
func (s *WatchPage) Format() string { return engine.FormatJSON3 }

func (s *WatchPage) Fetch(ctx context.Context, ref engine.SourceRef) ([]byte, error) {
	watchURL := ref.URL
	if watchURL == "" {
		watchURL = "https://www.youtube.com/watch?v=" + ref.ID
	}

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentChrome)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		return s.Client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("watch page: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 6*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read watch page: %w", err)
	}

	idx := strings.Index(string(body), playerResponseMarker)
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	jsonData := extractJSON(body[idx+len(playerResponseMarker):])
	if jsonData == nil {
		return nil, errors.New("failed to extract ytInitialPlayerResponse JSON")
	}

	var pr playerResp
	if err := json.Unmarshal(jsonData, &pr); err != nil {
		return nil, fmt.Errorf("decode ytInitialPlayerResponse: %w", err)
	}
	tracks, err := captionTracks(&pr)
	if err != nil {
		return nil, err
	}
	track, err := pickTrack(tracks, s.Langs, true)
	if err != nil {
		return nil, err
	}
	return fetchTrackJSON3(ctx, s.Client, track.BaseURL)
}

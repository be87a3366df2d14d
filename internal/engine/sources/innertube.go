// Package sources implements the transcript acquisition strategies: the
// Innertube player endpoint, the watch page scrape, and the yt-dlp
// subprocess. Every strategy takes its HTTP client explicitly.
package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/anatolykoptev/go_highlights/internal/engine"
)

const (
	innertubePlayerURL = "https://www.youtube.com/youtubei/v1/player"
	ytAndroidVersion   = "20.10.38"
	ytAndroidUA        = "com.google.android.youtube/" + ytAndroidVersion + " (Linux; U; Android 11) gzip"
)

type playerReq struct {
	VideoID        string       `json:"videoId"`
	Context        innertubeCtx `json:"context"`
	RacyCheckOk    bool         `json:"racyCheckOk"`
	ContentCheckOk bool         `json:"contentCheckOk"`
}

type innertubeCtx struct {
	Client innertubeClient `json:"client"`
}

type innertubeClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

type playerResp struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

// fetchPlayerResponse POSTs to the Innertube /player endpoint with the
// ANDROID client identity, which hands out caption track URLs without a
// logged-in session.
func fetchPlayerResponse(ctx context.Context, client *http.Client, videoID string) (*playerResp, error) {
	reqBody, err := json.Marshal(playerReq{
		VideoID: videoID,
		Context: innertubeCtx{
			Client: innertubeClient{
				ClientName:        "ANDROID",
				ClientVersion:     ytAndroidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	})
	if err != nil {
		return nil, err
	}

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, innertubePlayerURL+"?prettyPrint=false", bytes.NewReader(reqBody))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", ytAndroidUA)
		req.Header.Set("X-Youtube-Client-Name", "3")
		req.Header.Set("X-Youtube-Client-Version", ytAndroidVersion)
		return client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("android innertube: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("android innertube: HTTP %d: %s", resp.StatusCode, snippet)
	}

	var pr playerResp
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode player response: %w", err)
	}
	return &pr, nil
}

func captionTracks(pr *playerResp) ([]captionTrack, error) {
	if pr.Captions == nil {
		if pr.PlayabilityStatus != nil && pr.PlayabilityStatus.Reason != "" {
			return nil, fmt.Errorf("captions unavailable: %s", pr.PlayabilityStatus.Reason)
		}
		return nil, errors.New("no captions in player response")
	}
	tracks := pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, errors.New("no caption tracks")
	}
	return tracks, nil
}

// needsPoToken reports whether a caption track URL requires a PoToken.
// Tracks with &exp=xpe cannot be fetched server-side.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickTrack selects a usable caption track honoring the language
// preference order. With allowAuto false only manually-authored tracks
// qualify; with it true, auto-generated ("asr") tracks are acceptable
// but manual ones in the same language still win.
func pickTrack(tracks []captionTrack, langs []string, allowAuto bool) (captionTrack, error) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if needsPoToken(t.BaseURL) {
			continue
		}
		if t.Kind == "asr" && !allowAuto {
			continue
		}
		usable = append(usable, t)
	}
	if len(usable) == 0 {
		if allowAuto {
			return captionTrack{}, errors.New("all caption tracks require PoToken")
		}
		return captionTrack{}, errors.New("no manually-authored caption tracks")
	}
	// 1. Manual track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, nil
			}
		}
	}
	// 2. Any track in preferred language
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, nil
			}
		}
	}
	// 3. Any English track
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, nil
		}
	}
	return usable[0], nil
}

// fetchTrackJSON3 downloads a caption track in the json3 timedtext format.
func fetchTrackJSON3(ctx context.Context, client *http.Client, baseURL string) ([]byte, error) {
	trackURL := baseURL
	if !strings.Contains(trackURL, "fmt=json3") {
		trackURL += "&fmt=json3"
	}

	resp, err := engine.RetryHTTP(ctx, engine.DefaultRetryConfig, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", engine.UserAgentBot)
		return client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch caption track: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch caption track: HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
}

// extractJSON returns the balanced JSON object at the start of b, or nil.
// Used to cut structured player data out of surrounding page script.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	var prev byte
	for i, c := range b {
		if inStr {
			if c == '"' && prev != '\\' {
				inStr = false
			}
		} else {
			switch c {
			case '"':
				inStr = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return b[:i+1]
				}
			}
		}
		prev = c
	}
	return nil
}

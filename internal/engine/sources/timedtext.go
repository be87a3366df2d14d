package sources

import (
	"context"
	"net/http"

	"github.com/anatolykoptev/go_highlights/internal/engine"
)

// PlayerCaptions fetches caption tracks through the Innertube /player
// endpoint. One instance restricted to manual tracks serves as the
// official-captions rung of the ladder; a second with AllowAuto set
// serves as the auto-captions rung.
type PlayerCaptions struct {
	Client    *http.Client
	Langs     []string
	AllowAuto bool
}

func (s *PlayerCaptions) Name() string {
	if s.AllowAuto {
		return "auto_captions"
	}
	return "official_captions"
}

func (s *PlayerCaptions) Format() string { return engine.FormatJSON3 }

func (s *PlayerCaptions) Fetch(ctx context.Context, ref engine.SourceRef) ([]byte, error) {
	pr, err := fetchPlayerResponse(ctx, s.Client, ref.ID)
	if err != nil {
		return nil, err
	}
	tracks, err := captionTracks(pr)
	if err != nil {
		return nil, err
	}
	track, err := pickTrack(tracks, s.Langs, s.AllowAuto)
	if err != nil {
		return nil, err
	}
	return fetchTrackJSON3(ctx, s.Client, track.BaseURL)
}

package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/anatolykoptev/go_highlights/internal/engine"
)

// YtDlp shells out to the yt-dlp binary as the last rung of the ladder.
// It survives the player API changes that break the HTTP strategies, at
// the cost of a subprocess per fetch.
type YtDlp struct {
	Binary string
	Langs  []string
}

// NewYtDlp locates the yt-dlp binary on PATH. A nil return means the
// binary is absent and the strategy should be left out of the ladder.
func NewYtDlp(langs []string) *YtDlp {
	path, err := exec.LookPath("yt-dlp")
	if err != nil {
		return nil
	}
	return &YtDlp{Binary: path, Langs: langs}
}

func (s *YtDlp) Name() string   { return "ytdlp" }
func (s *YtDlp) Format() string { return engine.FormatVTT }

func (s *YtDlp) Fetch(ctx context.Context, ref engine.SourceRef) ([]byte, error) {
	dir, err := os.MkdirTemp("", "captions-*")
	if err != nil {
		return nil, fmt.Errorf("yt-dlp workdir: %w", err)
	}
	defer os.RemoveAll(dir)

	cmd := exec.CommandContext(ctx, s.Binary, s.args(dir, ref)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp: %w: %s", err, engine.TruncateRunes(stderr.String(), 300, "…"))
	}

	path, err := s.pickSubtitleFile(dir)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (s *YtDlp) args(dir string, ref engine.SourceRef) []string {
	return []string{
		"--skip-download",
		"--write-subs",
		"--write-auto-subs",
		"--sub-format", "vtt",
		"--sub-langs", strings.Join(s.Langs, ","),
		"--output", filepath.Join(dir, "%(id)s"),
		"https://www.youtube.com/watch?v=" + ref.ID,
	}
}

// pickSubtitleFile chooses among the .vtt files yt-dlp produced,
// preferring the earliest configured language.
func (s *YtDlp) pickSubtitleFile(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.vtt"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", errors.New("yt-dlp produced no subtitle files")
	}
	for _, lang := range s.Langs {
		for _, m := range matches {
			if strings.HasSuffix(m, "."+lang+".vtt") {
				return m, nil
			}
		}
	}
	return matches[0], nil
}

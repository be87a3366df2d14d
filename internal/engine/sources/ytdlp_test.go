package sources

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/anatolykoptev/go_highlights/internal/engine"
)

func TestYtDlpArgs(t *testing.T) {
	s := &YtDlp{Binary: "/usr/bin/yt-dlp", Langs: []string{"en", "en-US"}}
	args := s.args("/tmp/work", engine.SourceRef{ID: "dQw4w9WgXcQ"})

	if !slices.Contains(args, "--skip-download") {
		t.Error("missing --skip-download")
	}
	if !slices.Contains(args, "--write-auto-subs") {
		t.Error("missing --write-auto-subs")
	}
	for i, a := range args {
		if a == "--sub-langs" && args[i+1] != "en,en-US" {
			t.Errorf("sub-langs = %q", args[i+1])
		}
	}
	last := args[len(args)-1]
	if !strings.HasSuffix(last, "watch?v=dQw4w9WgXcQ") {
		t.Errorf("last arg = %q, want watch URL", last)
	}
}

func TestYtDlpPickSubtitleFile(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"vid.de.vtt", "vid.en.vtt", "vid.fr.vtt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("WEBVTT\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s := &YtDlp{Langs: []string{"en"}}
	got, err := s.pickSubtitleFile(dir)
	if err != nil {
		t.Fatalf("pickSubtitleFile error: %v", err)
	}
	if filepath.Base(got) != "vid.en.vtt" {
		t.Errorf("picked %q, want the en track", got)
	}

	t.Run("no language match takes first", func(t *testing.T) {
		s := &YtDlp{Langs: []string{"ja"}}
		got, err := s.pickSubtitleFile(dir)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.HasSuffix(got, ".vtt") {
			t.Errorf("picked %q", got)
		}
	})

	t.Run("empty dir errors", func(t *testing.T) {
		s := &YtDlp{Langs: []string{"en"}}
		if _, err := s.pickSubtitleFile(t.TempDir()); err == nil {
			t.Error("expected error for empty dir")
		}
	})
}

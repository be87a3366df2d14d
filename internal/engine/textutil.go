package engine

import (
	"regexp"
	"strings"

	"github.com/anatolykoptev/go-kit/strutil"
	"golang.org/x/net/html"
)

// srtBraceRe matches SubRip styling directives like {\an8} or {italic}.
var srtBraceRe = regexp.MustCompile(`\{[^}]*\}`)

// soundCueRe matches standalone sound annotations like [Music] or [Applause].
var soundCueRe = regexp.MustCompile(`^\[\w+\]$`)

// StripMarkup removes caption markup from cue text: HTML-style tags
// (including VTT voice/class spans), SubRip brace directives, and entity
// references. The tokenizer handles nested and unterminated tags that a
// naive regex would mangle.
func StripMarkup(s string) string {
	s = srtBraceRe.ReplaceAllString(s, "")
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	var sb strings.Builder
	tz := html.NewTokenizer(strings.NewReader(s))
	for {
		tt := tz.Next()
		if tt == html.ErrorToken {
			break
		}
		if tt == html.TextToken {
			sb.Write(tz.Text())
		}
	}
	return sb.String()
}

// CollapseSpaces trims and collapses internal whitespace runs to single
// spaces.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// CleanCueText applies the full cue cleanup: markup stripping, whitespace
// collapse, and removal of sound-annotation-only text.
func CleanCueText(s string) string {
	s = CollapseSpaces(StripMarkup(s))
	if soundCueRe.MatchString(s) {
		return ""
	}
	return s
}

// Excerpt caps s at limit runes on a word boundary. Safe for UTF-8.
func Excerpt(s string, limit int) string {
	return strutil.TruncateAtWord(s, limit)
}

// TruncateRunes caps s at limit runes, appending suffix if truncated.
func TruncateRunes(s string, limit int, suffix string) string {
	return strutil.TruncateWith(s, limit, suffix)
}

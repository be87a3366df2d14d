package engine

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Cues with identical text starting within this tolerance are artifacts of
// overlapping caption tracks and get collapsed to the longer span.
const dupTolerance = 5 * time.Second

// Parse converts a raw caption payload into a CanonicalTranscript.
// An empty or tagless payload is sniffed before dispatch. Any parse failure,
// including zero surviving cues after cleanup, is a *MalformedTranscriptError
// carrying the originating strategy.
func Parse(raw RawTranscript) (*CanonicalTranscript, error) {
	incrParseRequests()

	format := raw.Format
	if format == "" {
		format = DetectFormat(raw.Payload)
	}

	var cues []Cue
	var err error
	switch format {
	case FormatVTT, FormatSRT:
		cues, err = parseCueBlocks(string(raw.Payload))
	case FormatJSON3:
		cues, err = parseJSON3(raw.Payload)
	case FormatSRV3:
		cues, err = parseSRV3(raw.Payload)
	default:
		err = fmt.Errorf("unsupported caption format %q", format)
	}
	if err != nil {
		incrParseFailures()
		return nil, &MalformedTranscriptError{Strategy: raw.Strategy, Format: format, Reason: err.Error()}
	}

	t, err := canonicalize(cues)
	if err != nil {
		incrParseFailures()
		return nil, &MalformedTranscriptError{Strategy: raw.Strategy, Format: format, Reason: err.Error()}
	}
	return t, nil
}

// CountCues reports how many cues raw parses to; 0 for malformed payloads.
// The acquisition chain uses it to validate payloads cheaply.
func CountCues(raw RawTranscript) int {
	t, err := Parse(raw)
	if err != nil {
		return 0
	}
	return len(t.Cues)
}

var srtHeadRe = regexp.MustCompile(`(?m)^\d+\s*\n\d{2}:\d{2}:\d{2},\d{3} -->`)

// DetectFormat sniffs an untagged payload.
func DetectFormat(payload []byte) string {
	head := strings.TrimLeft(string(payload[:min(len(payload), 2048)]), "\ufeff \t\r\n")
	switch {
	case strings.HasPrefix(head, "WEBVTT"):
		return FormatVTT
	case strings.HasPrefix(head, "{"):
		return FormatJSON3
	case strings.HasPrefix(head, "<"):
		return FormatSRV3
	case srtHeadRe.MatchString(head):
		return FormatSRT
	default:
		return FormatVTT
	}
}

// parseCueBlocks is the shared WebVTT/SRT line state machine: a timestamp
// line opens a cue, following non-blank lines accumulate as its text, and
// a blank line or the next timestamp line closes it. SRT block indices and
// VTT cue identifiers are skipped; anything else sitting where a timestamp
// belongs is malformed.
func parseCueBlocks(content string) ([]Cue, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")

	var cues []Cue
	pendingID := false
	i := 0

	// Header block (WEBVTT plus any metadata lines up to the first blank).
	if len(lines) > 0 && strings.HasPrefix(strings.TrimPrefix(strings.TrimSpace(lines[0]), "\ufeff"), "WEBVTT") {
		for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
			i++
		}
	}

	for i < len(lines) {
		line := strings.TrimSpace(lines[i])

		if line == "" {
			pendingID = false
			i++
			continue
		}

		// VTT comment/metadata blocks run until the next blank line.
		if strings.HasPrefix(line, "NOTE") || strings.HasPrefix(line, "STYLE") || strings.HasPrefix(line, "REGION") {
			for i < len(lines) && strings.TrimSpace(lines[i]) != "" {
				i++
			}
			continue
		}

		if strings.Contains(line, "-->") {
			start, end, err := parseTimestampLine(line)
			if err != nil {
				return nil, err
			}
			i++
			var texts []string
			for i < len(lines) {
				t := strings.TrimSpace(lines[i])
				if t == "" {
					i++
					break
				}
				if strings.Contains(t, "-->") {
					break // next cue opens without a separating blank
				}
				texts = append(texts, t)
				i++
			}
			cues = append(cues, Cue{Start: start, End: end, Text: strings.Join(texts, " ")})
			pendingID = false
			continue
		}

		if isDigits(line) {
			// SRT block index; the next line must carry the timestamps.
			i++
			continue
		}

		if pendingID {
			return nil, fmt.Errorf("expected timestamp line, got %q", TruncateRunes(line, 40, "…"))
		}
		pendingID = true // possible VTT cue identifier
		i++
	}

	return cues, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

func parseTimestampLine(line string) (start, end time.Duration, err error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timestamp line %q", line)
	}
	start, err = parseTimestamp(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, err
	}
	// Trailing VTT cue settings (position, align, …) follow the end stamp.
	endField := strings.TrimSpace(parts[1])
	if fields := strings.Fields(endField); len(fields) > 0 {
		endField = fields[0]
	}
	end, err = parseTimestamp(endField)
	if err != nil {
		return 0, 0, err
	}
	if end < start {
		return 0, 0, fmt.Errorf("cue ends before it starts: %q", line)
	}
	return start, end, nil
}

// parseTimestamp accepts HH:MM:SS.mmm, MM:SS.mmm, and the SRT comma
// variant, yielding a millisecond-resolution offset.
func parseTimestamp(s string) (time.Duration, error) {
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ":")

	var hours, minutes int
	var seconds float64
	var err error
	switch len(parts) {
	case 3:
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		if minutes, err = strconv.Atoi(parts[1]); err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		if seconds, err = strconv.ParseFloat(parts[2], 64); err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
	case 2:
		if minutes, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
		if seconds, err = strconv.ParseFloat(parts[1], 64); err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", s)
		}
	default:
		return 0, fmt.Errorf("invalid timestamp %q", s)
	}
	if hours < 0 || minutes < 0 || seconds < 0 {
		return 0, fmt.Errorf("negative timestamp %q", s)
	}
	ms := int64(hours)*3600_000 + int64(minutes)*60_000 + int64(seconds*1000+0.5)
	return time.Duration(ms) * time.Millisecond, nil
}

// canonicalize cleans, orders, and deduplicates raw cues. Zero surviving
// cues is an error, not an empty success.
func canonicalize(cues []Cue) (*CanonicalTranscript, error) {
	cleaned := make([]Cue, 0, len(cues))
	for _, c := range cues {
		c.Text = CleanCueText(c.Text)
		if c.Text == "" || c.Start < 0 || c.End <= c.Start {
			continue
		}
		cleaned = append(cleaned, c)
	}

	if !sort.SliceIsSorted(cleaned, func(i, j int) bool { return cleaned[i].Start < cleaned[j].Start }) {
		sort.SliceStable(cleaned, func(i, j int) bool { return cleaned[i].Start < cleaned[j].Start })
	}

	var out []Cue
	for _, c := range cleaned {
		if n := len(out); n > 0 {
			prev := &out[n-1]
			if prev.Text == c.Text && c.Start-prev.Start <= dupTolerance {
				if c.Dur() > prev.Dur() {
					*prev = c
				}
				continue
			}
		}
		out = append(out, c)
	}

	if len(out) == 0 {
		return nil, errors.New("no valid cues after cleanup")
	}

	var duration time.Duration
	for _, c := range out {
		if c.End > duration {
			duration = c.End
		}
	}
	return &CanonicalTranscript{Cues: out, Duration: duration}, nil
}

// WriteVTT serializes a canonical transcript back to WebVTT. Parsing the
// output yields an equal transcript.
func WriteVTT(t *CanonicalTranscript) []byte {
	var sb strings.Builder
	sb.WriteString("WEBVTT\n\n")
	for _, c := range t.Cues {
		sb.WriteString(vttTimestamp(c.Start))
		sb.WriteString(" --> ")
		sb.WriteString(vttTimestamp(c.End))
		sb.WriteByte('\n')
		sb.WriteString(c.Text)
		sb.WriteString("\n\n")
	}
	return []byte(sb.String())
}

func vttTimestamp(d time.Duration) string {
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d.%03d",
		ms/3600_000, ms/60_000%60, ms/1000%60, ms%1000)
}

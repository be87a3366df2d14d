package engine

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"time"
)

// json3 is the timedtext format the Innertube player endpoints hand back
// when a caption track URL is requested with fmt=json3.
type json3Doc struct {
	Events []json3Event `json:"events"`
}

type json3Event struct {
	StartMs    int64      `json:"tStartMs"`
	DurationMs int64      `json:"dDurationMs"`
	Segs       []json3Seg `json:"segs"`
}

type json3Seg struct {
	UTF8 string `json:"utf8"`
}

func parseJSON3(payload []byte) ([]Cue, error) {
	var doc json3Doc
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode json3: %w", err)
	}
	if len(doc.Events) == 0 {
		return nil, errors.New("json3 payload has no events")
	}

	cues := make([]Cue, 0, len(doc.Events))
	for _, ev := range doc.Events {
		var text string
		for _, seg := range ev.Segs {
			text += seg.UTF8
		}
		start := time.Duration(ev.StartMs) * time.Millisecond
		end := start + time.Duration(ev.DurationMs)*time.Millisecond
		cues = append(cues, Cue{Start: start, End: end, Text: text})
	}
	return cues, nil
}

// srv3 and the older timedtext XML share one decoder: srv3 carries
// <p t d> lines in milliseconds under <body>, the legacy shape carries
// <text start dur> lines in seconds at the root.
type timedtextDoc struct {
	Body  *timedtextBody  `xml:"body"`
	Texts []timedtextText `xml:"text"`
}

type timedtextBody struct {
	Lines []timedtextP `xml:"p"`
}

type timedtextP struct {
	StartMs    int64  `xml:"t,attr"`
	DurationMs int64  `xml:"d,attr"`
	Inner      string `xml:",innerxml"`
}

type timedtextText struct {
	Start float64 `xml:"start,attr"`
	Dur   float64 `xml:"dur,attr"`
	Inner string  `xml:",innerxml"`
}

func parseSRV3(payload []byte) ([]Cue, error) {
	var doc timedtextDoc
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("decode timedtext xml: %w", err)
	}

	var cues []Cue
	if doc.Body != nil {
		for _, p := range doc.Body.Lines {
			start := time.Duration(p.StartMs) * time.Millisecond
			end := start + time.Duration(p.DurationMs)*time.Millisecond
			cues = append(cues, Cue{Start: start, End: end, Text: p.Inner})
		}
	}
	for _, t := range doc.Texts {
		start := time.Duration(t.Start * float64(time.Second))
		end := start + time.Duration(t.Dur*float64(time.Second))
		cues = append(cues, Cue{Start: start, End: end, Text: t.Inner})
	}

	if len(cues) == 0 {
		return nil, errors.New("timedtext payload has no lines")
	}
	return cues, nil
}

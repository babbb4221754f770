package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/VanGongwanxiaowan/batch-video2/constant"
)

// Segment sizing limits. Boundaries are derived from character density
// against the narration duration, not from silence detection.
const (
	maxSegmentDuration = 15 * time.Second
	maxSegmentRunes    = 120
)

// SubtitleStep time-aligns the script against the synthesized audio and
// writes the SRT file. Each sentence is allotted a share of the audio
// proportional to its rune count; sentences are then grouped into
// bounded segments that later drive image generation and composition.
type SubtitleStep struct{}

func (s *SubtitleStep) Name() string {
	return constant.StepSubtitle
}

func (s *SubtitleStep) Run(ctx context.Context, pc *Context) error {
	if pc.AudioDuration <= 0 {
		return fmt.Errorf("audio duration unknown")
	}

	sentences := splitSentences(pc.Script)
	if len(sentences) == 0 {
		return fmt.Errorf("script contains no sentences")
	}

	cues := alignSentences(sentences, pc.AudioDuration)
	segments := groupCues(cues)

	subtitleDir := filepath.Join(pc.WorkspaceDir, "subtitle")
	if err := os.MkdirAll(subtitleDir, os.ModePerm); err != nil {
		return err
	}
	subtitlePath := filepath.Join(subtitleDir, "speech.srt")
	if err := os.WriteFile(subtitlePath, []byte(renderSRT(cues)), 0644); err != nil {
		return err
	}

	pc.SubtitlePath = subtitlePath
	pc.Segments = segments

	zerolog.Ctx(ctx).Info().
		Int64("job_id", pc.JobID).
		Int("cues", len(cues)).
		Int("segments", len(segments)).
		Msg("subtitle generated")

	return nil
}

type cue struct {
	startMs int
	endMs   int
	text    string
}

var sentenceTerminators = ".!?;。！？；\n"

func splitSentences(script string) []string {
	var sentences []string
	var current strings.Builder
	for _, r := range script {
		if strings.ContainsRune(sentenceTerminators, r) {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
			continue
		}
		current.WriteRune(r)
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// alignSentences distributes the audio duration across sentences in
// proportion to their rune counts. The final cue is pinned to the exact
// audio end so rounding never drifts past it.
func alignSentences(sentences []string, audio time.Duration) []cue {
	totalRunes := 0
	for _, s := range sentences {
		totalRunes += utf8.RuneCountInString(s)
	}

	totalMs := int(audio.Milliseconds())
	cues := make([]cue, 0, len(sentences))
	cursor := 0
	for i, s := range sentences {
		endMs := totalMs
		if i < len(sentences)-1 {
			share := float64(utf8.RuneCountInString(s)) / float64(totalRunes)
			endMs = cursor + int(share*float64(totalMs))
			if endMs <= cursor {
				endMs = cursor + 1
			}
			if endMs > totalMs {
				endMs = totalMs
			}
		}
		cues = append(cues, cue{startMs: cursor, endMs: endMs, text: s})
		cursor = endMs
	}
	return cues
}

// groupCues packs consecutive cues into segments bounded by duration and
// text length.
func groupCues(cues []cue) []Segment {
	var segments []Segment
	var texts []string
	startMs := -1
	runes := 0

	flush := func(endMs int) {
		if len(texts) == 0 {
			return
		}
		segments = append(segments, Segment{
			Index:   len(segments),
			StartMs: startMs,
			EndMs:   endMs,
			Text:    strings.Join(texts, " "),
		})
		texts = nil
		startMs = -1
		runes = 0
	}

	maxMs := int(maxSegmentDuration.Milliseconds())
	for _, c := range cues {
		cueRunes := utf8.RuneCountInString(c.text)
		if startMs >= 0 && (c.endMs-startMs > maxMs || runes+cueRunes > maxSegmentRunes) {
			flush(c.startMs)
		}
		if startMs < 0 {
			startMs = c.startMs
		}
		texts = append(texts, c.text)
		runes += cueRunes
	}
	if len(cues) > 0 {
		flush(cues[len(cues)-1].endMs)
	}
	return segments
}

func renderSRT(cues []cue) string {
	var b strings.Builder
	for i, c := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, srtTimestamp(c.startMs), srtTimestamp(c.endMs), c.text)
	}
	return b.String()
}

func srtTimestamp(ms int) string {
	h := ms / 3600000
	m := ms % 3600000 / 60000
	s := ms % 60000 / 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

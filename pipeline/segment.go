package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/VanGongwanxiaowan/batch-video2/constant"
)

// SegmentStep builds the image prompt for every segment: the job's topic
// prompt prefixed to the segment text, truncated to the configured
// length. Purely deterministic, no network calls.
type SegmentStep struct {
	MaxPromptLength int
}

func (s *SegmentStep) Name() string {
	return constant.StepSegment
}

func (s *SegmentStep) Run(ctx context.Context, pc *Context) error {
	if len(pc.Segments) == 0 {
		return fmt.Errorf("no segments to prompt")
	}

	for i := range pc.Segments {
		pc.Segments[i].Prompt = buildPrompt(pc.TopicPrompt, pc.Segments[i].Text, s.MaxPromptLength)
	}

	zerolog.Ctx(ctx).Info().
		Int64("job_id", pc.JobID).
		Int("segments", len(pc.Segments)).
		Msg("segment prompts built")

	return nil
}

func buildPrompt(topicPrompt, text string, maxLen int) string {
	prompt := strings.TrimSpace(strings.TrimSpace(topicPrompt) + " " + text)
	if maxLen <= 0 {
		return prompt
	}
	runes := []rune(prompt)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return prompt
}

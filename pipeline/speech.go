package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/VanGongwanxiaowan/batch-video2/client"
	"github.com/VanGongwanxiaowan/batch-video2/constant"
)

// SpeechStep synthesizes the narration audio with a single call to the
// external speech service.
type SpeechStep struct {
	Client SpeechSynthesizer
	Media  MediaEngine
}

func (s *SpeechStep) Name() string {
	return constant.StepSpeech
}

func (s *SpeechStep) Run(ctx context.Context, pc *Context) error {
	zerolog.Ctx(ctx).Info().Int64("job_id", pc.JobID).Msg("synthesizing speech")

	result, err := s.Client.Synthesize(ctx, client.SpeechRequest{
		Text:     pc.Script,
		Language: pc.Language,
		VoiceRef: pc.VoiceRef,
		Speed:    pc.SpeechSpeed,
	})
	if err != nil {
		return &TransientError{Op: "speech generation", Err: err}
	}

	audioDir := filepath.Join(pc.WorkspaceDir, "audio")
	if err := os.MkdirAll(audioDir, os.ModePerm); err != nil {
		return err
	}
	audioPath := filepath.Join(audioDir, "speech.wav")
	if err := os.WriteFile(audioPath, result.Audio, 0644); err != nil {
		return err
	}

	duration := result.Duration
	if duration == 0 {
		duration, err = s.Media.ProbeDuration(ctx, audioPath)
		if err != nil {
			return &TransientError{Op: "speech generation", Err: err}
		}
	}

	pc.AudioPath = audioPath
	pc.AudioDuration = duration

	zerolog.Ctx(ctx).Info().
		Int64("job_id", pc.JobID).
		Str("audio", audioPath).
		Dur("duration", duration).
		Msg("speech synthesized")

	return nil
}

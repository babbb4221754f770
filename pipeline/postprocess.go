package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/VanGongwanxiaowan/batch-video2/constant"
)

// PostProcessingStep overlays the watermark logo when one is configured.
// Without a logo it is a pure passthrough, and an overlay failure falls
// back to the unprocessed video instead of failing the execution.
type PostProcessingStep struct {
	Media MediaEngine
}

func (s *PostProcessingStep) Name() string {
	return constant.StepPostProcessing
}

func (s *PostProcessingStep) Run(ctx context.Context, pc *Context) error {
	input := pc.CombinedVideoPath
	if pc.AvatarVideoPath != "" {
		input = pc.AvatarVideoPath
	}
	if input == "" {
		return fmt.Errorf("no video to post-process")
	}

	if pc.Options.LogoPath == "" {
		pc.FinalVideoPath = input
		return nil
	}

	outputPath := filepath.Join(filepath.Dir(input), "final.mp4")
	if err := s.Media.OverlayLogo(ctx, input, pc.Options.LogoPath, outputPath); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Int64("job_id", pc.JobID).
			Msg("logo overlay failed, delivering unprocessed video")
		pc.FinalVideoPath = input
		return nil
	}

	pc.FinalVideoPath = outputPath
	return nil
}

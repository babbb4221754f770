package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/VanGongwanxiaowan/batch-video2/constant"
	"github.com/VanGongwanxiaowan/batch-video2/pkg/media"
)

// CompositionStep renders the segment images and narration audio into
// the combined video at the resolution implied by the aspect ratio.
type CompositionStep struct {
	Media MediaEngine
}

func (s *CompositionStep) Name() string {
	return constant.StepComposition
}

func (s *CompositionStep) Run(ctx context.Context, pc *Context) error {
	if pc.AudioPath == "" || len(pc.Segments) == 0 {
		return fmt.Errorf("missing audio or segments")
	}

	clips := make([]media.Clip, 0, len(pc.Segments))
	for _, segment := range pc.Segments {
		if segment.ImagePath == "" {
			return fmt.Errorf("segment %d has no image", segment.Index)
		}
		clips = append(clips, media.Clip{
			ImagePath: segment.ImagePath,
			Duration:  segment.Duration(),
		})
	}

	videoDir := filepath.Join(pc.WorkspaceDir, "video")
	if err := os.MkdirAll(videoDir, os.ModePerm); err != nil {
		return err
	}
	outputPath := filepath.Join(videoDir, "combined.mp4")

	width, height := pc.AspectRatio.Resolution()
	err := s.Media.Compose(ctx, media.ComposeOptions{
		AudioPath:  pc.AudioPath,
		Clips:      clips,
		Width:      width,
		Height:     height,
		Transition: string(pc.Options.Transition),
		OutputPath: outputPath,
	})
	if err != nil {
		return &TransientError{Op: "video composition", Err: err}
	}

	pc.CombinedVideoPath = outputPath

	zerolog.Ctx(ctx).Info().
		Int64("job_id", pc.JobID).
		Str("video", outputPath).
		Int("width", width).
		Int("height", height).
		Msg("video composed")

	return nil
}

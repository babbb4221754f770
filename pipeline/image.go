package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/VanGongwanxiaowan/batch-video2/client"
	"github.com/VanGongwanxiaowan/batch-video2/constant"
	"github.com/VanGongwanxiaowan/batch-video2/pkg/retry"
)

// ImageStep generates one image per segment. It is the pipeline's only
// internal fan-out: requests run concurrently up to the configured
// limit, each independently retried with a fixed delay, and the step
// completes only after every segment has succeeded or exhausted its
// retries.
type ImageStep struct {
	Client      ImageGenerator
	Concurrency int
	Attempts    int
	Delay       time.Duration
}

func (s *ImageStep) Name() string {
	return constant.StepImageGeneration
}

func (s *ImageStep) Run(ctx context.Context, pc *Context) error {
	if len(pc.Segments) == 0 {
		return fmt.Errorf("no segments to illustrate")
	}

	imageDir := filepath.Join(pc.WorkspaceDir, "images")
	if err := os.MkdirAll(imageDir, os.ModePerm); err != nil {
		return err
	}

	width, height := pc.AspectRatio.Resolution()
	concurrency := s.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	zerolog.Ctx(ctx).Info().
		Int64("job_id", pc.JobID).
		Int("segments", len(pc.Segments)).
		Int("concurrency", concurrency).
		Msg("generating segment images")

	jobs := make(chan int, concurrency)
	errs := make([]error, len(pc.Segments))
	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = s.generateOne(ctx, pc, i, width, height, imageDir)
			}
		}()
	}
	for i := range pc.Segments {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return &TransientError{Op: fmt.Sprintf("image generation for segment %d", i), Err: err}
		}
	}
	return nil
}

func (s *ImageStep) generateOne(ctx context.Context, pc *Context, index, width, height int, imageDir string) error {
	segment := &pc.Segments[index]

	data, err := retry.Do(ctx, s.Attempts, s.Delay, func() ([]byte, error) {
		return s.Client.Generate(ctx, client.ImageRequest{
			Prompt: segment.Prompt,
			Width:  width,
			Height: height,
		})
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).
			Int64("job_id", pc.JobID).
			Int("segment", index).
			Msg("segment image exhausted retries")
		return err
	}

	imagePath := filepath.Join(imageDir, fmt.Sprintf("segment_%03d.png", index))
	if err := os.WriteFile(imagePath, data, 0644); err != nil {
		return err
	}
	segment.ImagePath = imagePath
	return nil
}

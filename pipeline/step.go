package pipeline

import (
	"context"
	"time"

	"github.com/VanGongwanxiaowan/batch-video2/client"
	"github.com/VanGongwanxiaowan/batch-video2/config"
	"github.com/VanGongwanxiaowan/batch-video2/pkg/media"
)

// Step is one discrete, ordered transformation stage. Steps read and
// write only the pipeline Context and report failure through typed
// errors; they never decide retry policy and never touch the execution
// store.
type Step interface {
	Name() string
	Run(ctx context.Context, pc *Context) error
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req client.SpeechRequest) (client.SpeechResult, error)
}

type ImageGenerator interface {
	Generate(ctx context.Context, req client.ImageRequest) ([]byte, error)
}

type AvatarSynthesizer interface {
	Synthesize(ctx context.Context, audioPath, templatePath string) ([]byte, error)
}

type MediaEngine interface {
	Compose(ctx context.Context, opts media.ComposeOptions) error
	OverlayLogo(ctx context.Context, videoPath, logoPath, outputPath string) error
	ExtractFrame(ctx context.Context, videoPath string, offset time.Duration, outputPath string) error
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
}

type BlobStore interface {
	Upload(ctx context.Context, localPath, key string) (string, error)
	Download(ctx context.Context, key, localPath string) error
	Delete(ctx context.Context, key string) error
}

// Deps bundles the external collaborators the steps delegate to.
type Deps struct {
	Speech  SpeechSynthesizer
	Image   ImageGenerator
	Avatar  AvatarSynthesizer
	Media   MediaEngine
	Storage BlobStore
}

// BuildSteps assembles the pipeline in its fixed order. The step set is
// closed: AvatarSynthesis is the only conditional member and is left out
// entirely (no record, no no-op) when the job does not request it.
func BuildSteps(cfg config.Pipeline, deps Deps, opts config.JobOptions) []Step {
	steps := []Step{
		&SpeechStep{Client: deps.Speech, Media: deps.Media},
		&SubtitleStep{},
		&SegmentStep{MaxPromptLength: cfg.MaxPromptLength},
		&ImageStep{
			Client:      deps.Image,
			Concurrency: cfg.ImageConcurrency,
			Attempts:    cfg.ImageRetryAttempts,
			Delay:       cfg.ImageRetryDelay,
		},
		&CompositionStep{Media: deps.Media},
	}
	if opts.EnableAvatar {
		steps = append(steps, &AvatarStep{Client: deps.Avatar, Storage: deps.Storage})
	}
	steps = append(steps,
		&PostProcessingStep{Media: deps.Media},
		&UploadStep{Collector: NewResultCollector(deps.Storage, deps.Media, cfg.CoverFrameOffset)},
	)
	return steps
}

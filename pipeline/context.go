package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/VanGongwanxiaowan/batch-video2/config"
	"github.com/VanGongwanxiaowan/batch-video2/constant"
	"github.com/VanGongwanxiaowan/batch-video2/entities"
)

// Segment is one time-bounded slice of the script: a narration window
// with its image prompt and, once generated, the image backing it.
type Segment struct {
	Index     int
	StartMs   int
	EndMs     int
	Text      string
	Prompt    string
	ImagePath string
}

func (s Segment) Duration() time.Duration {
	return time.Duration(s.EndMs-s.StartMs) * time.Millisecond
}

// Context is the working data for one execution attempt. It is a pure
// data holder: steps communicate only through it, fields are populated
// monotonically and never cleared, and it is discarded after the
// artifacts are uploaded.
type Context struct {
	JobID       int64
	ExecutionID uuid.UUID

	// Job configuration snapshot, immutable for the whole attempt.
	Title       string
	Script      string
	Language    string
	VoiceRef    string
	TopicPrompt string
	SpeechSpeed float64
	AspectRatio constant.AspectRatio
	Options     config.JobOptions

	WorkspaceDir string

	// Step outputs, in pipeline order.
	AudioPath         string
	AudioDuration     time.Duration
	SubtitlePath      string
	Segments          []Segment
	CombinedVideoPath string
	AvatarVideoPath   string
	FinalVideoPath    string
	CoverPath         string
	Uploads           map[string]string
}

func NewContext(job *entities.Job, opts config.JobOptions, executionID uuid.UUID, workspaceDir string) *Context {
	speed := job.SpeechSpeed
	if speed <= 0 {
		speed = 1.0
	}
	return &Context{
		JobID:        job.ID,
		ExecutionID:  executionID,
		Title:        job.Title,
		Script:       job.Content,
		Language:     job.Language,
		VoiceRef:     job.VoiceRef,
		TopicPrompt:  job.TopicPrompt,
		SpeechSpeed:  speed,
		AspectRatio:  job.AspectRatio,
		Options:      opts,
		WorkspaceDir: workspaceDir,
	}
}

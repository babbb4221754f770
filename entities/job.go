package entities

import (
	"time"

	"github.com/VanGongwanxiaowan/batch-video2/constant"
)

// Job is the immutable configuration snapshot of a video-generation
// request. It is owned by the upstream CRUD backend; the worker only
// reads it.
type Job struct {
	ID          int64                `json:"id"`
	Title       string               `json:"title"`
	Content     string               `json:"content"`
	Language    string               `json:"language"`
	VoiceRef    string               `json:"voice_ref"`
	TopicPrompt string               `json:"topic_prompt"`
	SpeechSpeed float64              `json:"speech_speed"`
	AspectRatio constant.AspectRatio `json:"aspect_ratio"`
	Options     string               `json:"options"` // JSON, parsed by config.ParseJobOptions
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	DeletedAt   *time.Time           `json:"deleted_at"`
}

func (Job) TableName() string {
	return "jobs"
}

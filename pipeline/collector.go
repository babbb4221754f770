package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// ResultCollector uploads the artifacts an execution produced and builds
// the persisted result map. Keys are namespaced by job id; map entries
// exist only for artifacts actually produced.
type ResultCollector struct {
	storage     BlobStore
	media       MediaEngine
	coverOffset time.Duration
}

func NewResultCollector(storage BlobStore, media MediaEngine, coverOffset time.Duration) *ResultCollector {
	return &ResultCollector{
		storage:     storage,
		media:       media,
		coverOffset: coverOffset,
	}
}

func (c *ResultCollector) Collect(ctx context.Context, pc *Context) (map[string]string, error) {
	if pc.CoverPath == "" && pc.FinalVideoPath != "" {
		coverPath := filepath.Join(pc.WorkspaceDir, "cover.jpg")
		if err := c.media.ExtractFrame(ctx, pc.FinalVideoPath, c.coverOffset, coverPath); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).
				Int64("job_id", pc.JobID).
				Msg("cover frame extraction failed, delivering without cover")
		} else {
			pc.CoverPath = coverPath
		}
	}

	artifacts := []struct {
		name     string
		fileName string
		path     string
	}{
		{"audio_key", "audio.wav", pc.AudioPath},
		{"subtitle_key", "subtitle.srt", pc.SubtitlePath},
		{"combined_video_key", "combined.mp4", pc.CombinedVideoPath},
		{"final_video_key", "final.mp4", pc.FinalVideoPath},
		{"cover_key", "cover.jpg", pc.CoverPath},
	}

	results := make(map[string]string)
	for _, artifact := range artifacts {
		if artifact.path == "" {
			continue
		}
		key := fmt.Sprintf("videos/%d/%s", pc.JobID, artifact.fileName)
		uploaded, err := c.storage.Upload(ctx, artifact.path, key)
		if err != nil {
			c.removeUploaded(ctx, results)
			return nil, &UploadError{Artifact: artifact.name, Err: err}
		}
		results[artifact.name] = uploaded
	}

	zerolog.Ctx(ctx).Info().
		Int64("job_id", pc.JobID).
		Int("artifacts", len(results)).
		Msg("artifacts uploaded")

	return results, nil
}

// removeUploaded deletes the keys delivered before a later upload
// failed, so a failed execution leaves no partial result set behind.
// Best effort: the local artifacts are still on disk at this point.
func (c *ResultCollector) removeUploaded(ctx context.Context, results map[string]string) {
	for name, key := range results {
		if err := c.storage.Delete(ctx, key); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).
				Str("artifact", name).
				Str("key", key).
				Msg("failed to remove partial upload")
		}
	}
}

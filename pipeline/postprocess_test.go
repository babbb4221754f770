package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VanGongwanxiaowan/batch-video2/config"
	"github.com/VanGongwanxiaowan/batch-video2/pkg/media"
)

type failingOverlayMedia struct {
	fakeMedia
}

func (f *failingOverlayMedia) OverlayLogo(ctx context.Context, videoPath, logoPath, outputPath string) error {
	return fmt.Errorf("ffmpeg exited with status 1")
}

func TestPostProcessingPassthroughWithoutLogo(t *testing.T) {
	pc := &Context{CombinedVideoPath: "/work/video/combined.mp4"}
	step := &PostProcessingStep{Media: &fakeMedia{}}

	require.NoError(t, step.Run(context.Background(), pc))
	assert.Equal(t, "/work/video/combined.mp4", pc.FinalVideoPath)
}

func TestPostProcessingPrefersAvatarVideo(t *testing.T) {
	pc := &Context{
		CombinedVideoPath: "/work/video/combined.mp4",
		AvatarVideoPath:   "/work/avatar/avatar.mp4",
	}
	step := &PostProcessingStep{Media: &fakeMedia{}}

	require.NoError(t, step.Run(context.Background(), pc))
	assert.Equal(t, "/work/avatar/avatar.mp4", pc.FinalVideoPath)
}

func TestPostProcessingOverlaysLogo(t *testing.T) {
	workspace := t.TempDir()
	videoDir := filepath.Join(workspace, "video")
	require.NoError(t, os.MkdirAll(videoDir, os.ModePerm))
	input := filepath.Join(videoDir, "combined.mp4")
	require.NoError(t, os.WriteFile(input, []byte("mp4"), 0644))

	pc := &Context{
		CombinedVideoPath: input,
		Options:           config.JobOptions{LogoPath: "/assets/logo.png"},
	}
	step := &PostProcessingStep{Media: &fakeMedia{}}

	require.NoError(t, step.Run(context.Background(), pc))
	assert.Equal(t, filepath.Join(videoDir, "final.mp4"), pc.FinalVideoPath)
	assert.FileExists(t, pc.FinalVideoPath)
}

func TestPostProcessingFallsBackOnOverlayFailure(t *testing.T) {
	pc := &Context{
		CombinedVideoPath: "/work/video/combined.mp4",
		Options:           config.JobOptions{LogoPath: "/assets/logo.png"},
	}
	step := &PostProcessingStep{Media: &failingOverlayMedia{}}

	require.NoError(t, step.Run(context.Background(), pc),
		"overlay failure must not fail the execution")
	assert.Equal(t, "/work/video/combined.mp4", pc.FinalVideoPath)
}

func TestPostProcessingRejectsMissingInput(t *testing.T) {
	err := (&PostProcessingStep{Media: &fakeMedia{}}).Run(context.Background(), &Context{})
	require.Error(t, err)
}

func TestResultCollectorSkipsMissingArtifacts(t *testing.T) {
	workspace := t.TempDir()
	final := filepath.Join(workspace, "final.mp4")
	require.NoError(t, os.WriteFile(final, []byte("mp4"), 0644))

	blob := &fakeBlob{}
	collector := NewResultCollector(blob, &fakeMedia{}, time.Second)

	pc := &Context{
		JobID:          9,
		WorkspaceDir:   workspace,
		FinalVideoPath: final,
	}
	uploads, err := collector.Collect(context.Background(), pc)
	require.NoError(t, err)

	assert.Contains(t, uploads, "final_video_key")
	assert.Contains(t, uploads, "cover_key")
	assert.NotContains(t, uploads, "audio_key")
	assert.NotContains(t, uploads, "subtitle_key")
	assert.NotContains(t, uploads, "combined_video_key")
	assert.Equal(t, "videos/9/final.mp4", uploads["final_video_key"])
}

type failingFrameMedia struct {
	fakeMedia
}

func (f *failingFrameMedia) ExtractFrame(ctx context.Context, videoPath string, offset time.Duration, outputPath string) error {
	return fmt.Errorf("ffmpeg exited with status 1")
}

func TestResultCollectorDeliversWithoutCoverOnFrameFailure(t *testing.T) {
	workspace := t.TempDir()
	final := filepath.Join(workspace, "final.mp4")
	require.NoError(t, os.WriteFile(final, []byte("mp4"), 0644))

	collector := NewResultCollector(&fakeBlob{}, &failingFrameMedia{}, time.Second)
	pc := &Context{JobID: 9, WorkspaceDir: workspace, FinalVideoPath: final}

	uploads, err := collector.Collect(context.Background(), pc)
	require.NoError(t, err)
	assert.Contains(t, uploads, "final_video_key")
	assert.NotContains(t, uploads, "cover_key")
}

type partialBlob struct {
	fakeBlob
	successes int
	calls     int
}

func (p *partialBlob) Upload(ctx context.Context, localPath, key string) (string, error) {
	p.calls++
	if p.calls > p.successes {
		return "", fmt.Errorf("bucket unreachable")
	}
	return p.fakeBlob.Upload(ctx, localPath, key)
}

func TestResultCollectorRemovesPartialUploads(t *testing.T) {
	workspace := t.TempDir()
	audio := filepath.Join(workspace, "audio.wav")
	final := filepath.Join(workspace, "final.mp4")
	require.NoError(t, os.WriteFile(audio, []byte("wav"), 0644))
	require.NoError(t, os.WriteFile(final, []byte("mp4"), 0644))

	blob := &partialBlob{successes: 1}
	collector := NewResultCollector(blob, &fakeMedia{}, time.Second)
	pc := &Context{
		JobID:          9,
		WorkspaceDir:   workspace,
		AudioPath:      audio,
		FinalVideoPath: final,
	}

	_, err := collector.Collect(context.Background(), pc)
	require.Error(t, err)

	var upErr *UploadError
	require.ErrorAs(t, err, &upErr)
	assert.Contains(t, blob.deletes, "videos/9/audio.wav")
	assert.Empty(t, blob.uploads, "no partial result set may remain")
}

var _ MediaEngine = (*media.Engine)(nil)

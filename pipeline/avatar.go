package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/VanGongwanxiaowan/batch-video2/constant"
)

// AvatarStep renders a presenter video from the narration audio and the
// avatar template stored in blob storage. It only exists in the step
// sequence when the job enables it.
type AvatarStep struct {
	Client  AvatarSynthesizer
	Storage BlobStore
}

func (s *AvatarStep) Name() string {
	return constant.StepAvatarSynthesis
}

func (s *AvatarStep) Run(ctx context.Context, pc *Context) error {
	avatarDir := filepath.Join(pc.WorkspaceDir, "avatar")
	if err := os.MkdirAll(avatarDir, os.ModePerm); err != nil {
		return err
	}

	templatePath := filepath.Join(avatarDir, "template"+filepath.Ext(pc.Options.AvatarTemplate))
	if err := s.Storage.Download(ctx, pc.Options.AvatarTemplate, templatePath); err != nil {
		return &TransientError{Op: "avatar template download", Err: err}
	}

	video, err := s.Client.Synthesize(ctx, pc.AudioPath, templatePath)
	if err != nil {
		return &TransientError{Op: "avatar synthesis", Err: err}
	}

	avatarPath := filepath.Join(avatarDir, "avatar.mp4")
	if err := os.WriteFile(avatarPath, video, 0644); err != nil {
		return err
	}
	pc.AvatarVideoPath = avatarPath

	zerolog.Ctx(ctx).Info().
		Int64("job_id", pc.JobID).
		Str("video", avatarPath).
		Msg("avatar synthesized")

	return nil
}

package pipeline

import (
	"context"
	"fmt"

	"github.com/VanGongwanxiaowan/batch-video2/constant"
)

// UploadStep delivers the artifacts through the ResultCollector. The
// upload map it writes is what the executor persists as the execution
// result.
type UploadStep struct {
	Collector *ResultCollector
}

func (s *UploadStep) Name() string {
	return constant.StepUpload
}

func (s *UploadStep) Run(ctx context.Context, pc *Context) error {
	if pc.FinalVideoPath == "" {
		return fmt.Errorf("no final video to deliver")
	}

	uploads, err := s.Collector.Collect(ctx, pc)
	if err != nil {
		return err
	}
	pc.Uploads = uploads
	return nil
}

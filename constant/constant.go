package constant

// ExecutionStatus is the lifecycle state of one pipeline execution.
// Terminal states (SUCCESS, FAILED, SKIPPED) are never left once reached.
type ExecutionStatus string

const (
	ExecutionStatusPending ExecutionStatus = "PENDING"
	ExecutionStatusRunning ExecutionStatus = "RUNNING"
	ExecutionStatusSuccess ExecutionStatus = "SUCCESS"
	ExecutionStatusFailed  ExecutionStatus = "FAILED"
	ExecutionStatusSkipped ExecutionStatus = "SKIPPED"
)

func (s ExecutionStatus) String() string {
	return string(s)
}

// Terminal reports whether the status can no longer change.
func (s ExecutionStatus) Terminal() bool {
	switch s {
	case ExecutionStatusSuccess, ExecutionStatusFailed, ExecutionStatusSkipped:
		return true
	}
	return false
}

type StepStatus string

const (
	StepStatusRunning   StepStatus = "RUNNING"
	StepStatusCompleted StepStatus = "COMPLETED"
	StepStatusFailed    StepStatus = "FAILED"
)

// Step names, in pipeline order. AvatarSynthesis is only present when the
// job requests it.
const (
	StepSpeech          = "Speech"
	StepSubtitle        = "Subtitle"
	StepSegment         = "Segment"
	StepImageGeneration = "ImageGeneration"
	StepComposition     = "Composition"
	StepAvatarSynthesis = "AvatarSynthesis"
	StepPostProcessing  = "PostProcessing"
	StepUpload          = "Upload"
)

type AspectRatio string

const (
	AspectRatioHorizontal AspectRatio = "horizontal"
	AspectRatioVertical   AspectRatio = "vertical"
)

// Resolution returns the output width and height for the ratio.
func (a AspectRatio) Resolution() (int, int) {
	if a == AspectRatioVertical {
		return 720, 1280
	}
	return 1280, 720
}

type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentStaging    Environment = "staging"
	EnvironmentDevelop    Environment = "develop"
)

func (e Environment) String() string {
	return string(e)
}

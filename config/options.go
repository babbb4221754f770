package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// TransitionType selects the ffmpeg xfade transition applied between
// segment images during composition.
type TransitionType string

const (
	TransitionNone     TransitionType = "none"
	TransitionFade     TransitionType = "fade"
	TransitionWipeLeft TransitionType = "wipeleft"
	TransitionSlideUp  TransitionType = "slideup"
)

// JobOptions enumerates every recognized per-job option. Jobs used to
// carry a free-form extra dict; unknown keys are now rejected instead of
// silently ignored.
type JobOptions struct {
	EnableAvatar   bool           `json:"enable_avatar"`
	AvatarTemplate string         `json:"avatar_template"`
	Transition     TransitionType `json:"transition_type"`
	LogoPath       string         `json:"logo_path"`
}

// ParseJobOptions decodes the job's options JSON. An empty document
// yields the defaults (no avatar, no transition, no logo).
func ParseJobOptions(raw string) (JobOptions, error) {
	opts := JobOptions{Transition: TransitionNone}
	if strings.TrimSpace(raw) == "" {
		return opts, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&opts); err != nil {
		return JobOptions{}, fmt.Errorf("invalid job options: %w", err)
	}

	if opts.Transition == "" {
		opts.Transition = TransitionNone
	}
	switch opts.Transition {
	case TransitionNone, TransitionFade, TransitionWipeLeft, TransitionSlideUp:
	default:
		return JobOptions{}, fmt.Errorf("invalid job options: unknown transition_type %q", opts.Transition)
	}

	if opts.EnableAvatar && opts.AvatarTemplate == "" {
		return JobOptions{}, fmt.Errorf("invalid job options: enable_avatar set without avatar_template")
	}

	return opts, nil
}

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJobOptions(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    JobOptions
		wantErr string
	}{
		{
			name: "empty document yields defaults",
			raw:  "",
			want: JobOptions{Transition: TransitionNone},
		},
		{
			name: "blank document yields defaults",
			raw:  "   ",
			want: JobOptions{Transition: TransitionNone},
		},
		{
			name: "full options",
			raw:  `{"enable_avatar": true, "avatar_template": "templates/host.mp4", "transition_type": "fade", "logo_path": "logos/brand.png"}`,
			want: JobOptions{
				EnableAvatar:   true,
				AvatarTemplate: "templates/host.mp4",
				Transition:     TransitionFade,
				LogoPath:       "logos/brand.png",
			},
		},
		{
			name: "missing transition defaults to none",
			raw:  `{"logo_path": "logos/brand.png"}`,
			want: JobOptions{Transition: TransitionNone, LogoPath: "logos/brand.png"},
		},
		{
			name:    "unknown key rejected",
			raw:     `{"enable_avtar": true}`,
			wantErr: "unknown field",
		},
		{
			name:    "unknown transition rejected",
			raw:     `{"transition_type": "zoom"}`,
			wantErr: "unknown transition_type",
		},
		{
			name:    "avatar without template rejected",
			raw:     `{"enable_avatar": true}`,
			wantErr: "avatar_template",
		},
		{
			name:    "malformed json rejected",
			raw:     `{"enable_avatar":`,
			wantErr: "invalid job options",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJobOptions(tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

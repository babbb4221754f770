package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "latin terminators",
			script: "First one. Second one! Third one?",
			want:   []string{"First one", "Second one", "Third one"},
		},
		{
			name:   "cjk terminators",
			script: "第一句。第二句！第三句？",
			want:   []string{"第一句", "第二句", "第三句"},
		},
		{
			name:   "newlines split",
			script: "line one\nline two",
			want:   []string{"line one", "line two"},
		},
		{
			name:   "trailing text without terminator",
			script: "Done. And then",
			want:   []string{"Done", "And then"},
		},
		{
			name:   "empty script",
			script: "   ",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitSentences(tt.script))
		})
	}
}

func TestAlignSentencesCoversFullDuration(t *testing.T) {
	sentences := []string{"short", "a much longer sentence than the first", "mid length one"}
	cues := alignSentences(sentences, 30*time.Second)

	require.Len(t, cues, 3)
	assert.Equal(t, 0, cues[0].startMs)
	assert.Equal(t, 30000, cues[len(cues)-1].endMs, "last cue pinned to audio end")

	for i := 1; i < len(cues); i++ {
		assert.Equal(t, cues[i-1].endMs, cues[i].startMs, "cues must be contiguous")
	}
	assert.Greater(t, cues[1].endMs-cues[1].startMs, cues[0].endMs-cues[0].startMs,
		"longer sentences get more time")
}

func TestGroupCuesBoundsSegments(t *testing.T) {
	// Three 10s cues: duration bound (15s) forces a split after each pair
	// boundary is crossed.
	cues := []cue{
		{startMs: 0, endMs: 10000, text: "one"},
		{startMs: 10000, endMs: 20000, text: "two"},
		{startMs: 20000, endMs: 30000, text: "three"},
	}
	segments := groupCues(cues)

	require.Len(t, segments, 3)
	for i, segment := range segments {
		assert.Equal(t, i, segment.Index)
		assert.LessOrEqual(t, segment.Duration(), maxSegmentDuration)
	}
	assert.Equal(t, 0, segments[0].StartMs)
	assert.Equal(t, 30000, segments[2].EndMs)
}

func TestGroupCuesMergesShortCues(t *testing.T) {
	cues := []cue{
		{startMs: 0, endMs: 2000, text: "one"},
		{startMs: 2000, endMs: 4000, text: "two"},
		{startMs: 4000, endMs: 6000, text: "three"},
	}
	segments := groupCues(cues)

	require.Len(t, segments, 1)
	assert.Equal(t, "one two three", segments[0].Text)
	assert.Equal(t, 0, segments[0].StartMs)
	assert.Equal(t, 6000, segments[0].EndMs)
}

func TestGroupCuesSplitsOnTextLength(t *testing.T) {
	long := strings.Repeat("x", 100)
	cues := []cue{
		{startMs: 0, endMs: 1000, text: long},
		{startMs: 1000, endMs: 2000, text: long},
	}
	segments := groupCues(cues)

	require.Len(t, segments, 2)
}

func TestSrtTimestamp(t *testing.T) {
	assert.Equal(t, "00:00:00,000", srtTimestamp(0))
	assert.Equal(t, "00:00:01,500", srtTimestamp(1500))
	assert.Equal(t, "00:01:05,042", srtTimestamp(65042))
	assert.Equal(t, "01:02:03,004", srtTimestamp(3723004))
}

func TestSubtitleStepWritesSRT(t *testing.T) {
	pc := &Context{
		JobID:         1,
		Script:        "Hello world. Goodbye world.",
		AudioDuration: 10 * time.Second,
		WorkspaceDir:  t.TempDir(),
	}

	step := &SubtitleStep{}
	require.NoError(t, step.Run(context.Background(), pc))

	require.NotEmpty(t, pc.SubtitlePath)
	assert.Equal(t, filepath.Join(pc.WorkspaceDir, "subtitle", "speech.srt"), pc.SubtitlePath)
	require.NotEmpty(t, pc.Segments)

	data, err := os.ReadFile(pc.SubtitlePath)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "1\n00:00:00,000 --> ")
	assert.Contains(t, content, "Hello world")
	assert.Contains(t, content, "Goodbye world")
}

func TestSubtitleStepRejectsMissingAudioDuration(t *testing.T) {
	pc := &Context{Script: "Hello.", WorkspaceDir: t.TempDir()}
	err := (&SubtitleStep{}).Run(context.Background(), pc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audio duration")
}

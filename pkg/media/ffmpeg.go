package media

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Engine shells out to ffmpeg/ffprobe for the local media operations:
// slideshow composition, logo overlay, cover frame extraction and
// duration probing.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

type Clip struct {
	ImagePath string
	Duration  time.Duration
}

type ComposeOptions struct {
	AudioPath  string
	Clips      []Clip
	Width      int
	Height     int
	Transition string // "" or "none" disables xfade
	OutputPath string
}

const transitionDuration = 0.5

// Compose renders the per-segment images into one video timed to the
// narration audio. Each image holds for its segment duration; adjacent
// images are joined with an optional xfade transition.
func (e *Engine) Compose(ctx context.Context, opts ComposeOptions) error {
	if len(opts.Clips) == 0 {
		return fmt.Errorf("no clips to compose")
	}

	args := []string{"-y"}
	for _, clip := range opts.Clips {
		args = append(args,
			"-loop", "1",
			"-t", formatSeconds(clip.Duration),
			"-i", clip.ImagePath,
		)
	}
	args = append(args, "-i", opts.AudioPath)
	audioIndex := len(opts.Clips)

	var filter strings.Builder
	for i := range opts.Clips {
		filter.WriteString(fmt.Sprintf(
			"[%d:v]scale=w=%d:h=%d:force_original_aspect_ratio=decrease,pad=w=%d:h=%d:x=(ow-iw)/2:y=(oh-ih)/2,setsar=1[v%d]; ",
			i, opts.Width, opts.Height, opts.Width, opts.Height, i))
	}

	useTransition := opts.Transition != "" && opts.Transition != "none" && len(opts.Clips) > 1
	if useTransition {
		// xfade consumes transitionDuration from each boundary, so the
		// offsets accumulate clip durations minus the overlap.
		prev := "v0"
		offset := 0.0
		for i := 1; i < len(opts.Clips); i++ {
			offset += opts.Clips[i-1].Duration.Seconds() - transitionDuration
			label := fmt.Sprintf("x%d", i)
			filter.WriteString(fmt.Sprintf(
				"[%s][v%d]xfade=transition=%s:duration=%s:offset=%s[%s]; ",
				prev, i, opts.Transition,
				strconv.FormatFloat(transitionDuration, 'f', -1, 64),
				strconv.FormatFloat(offset, 'f', 3, 64), label))
			prev = label
		}
		filter.WriteString(fmt.Sprintf("[%s]format=yuv420p[vout]", prev))
	} else {
		for i := range opts.Clips {
			filter.WriteString(fmt.Sprintf("[v%d]", i))
		}
		filter.WriteString(fmt.Sprintf("concat=n=%d:v=1:a=0,format=yuv420p[vout]", len(opts.Clips)))
	}

	args = append(args,
		"-filter_complex", filter.String(),
		"-map", "[vout]",
		"-map", fmt.Sprintf("%d:a:0", audioIndex),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "22",
		"-c:a", "aac",
		"-b:a", "128k",
		"-shortest",
		"-movflags", "+faststart",
		opts.OutputPath,
	)

	return e.run(ctx, "ffmpeg", args)
}

// OverlayLogo stamps the logo in the top-right corner, scaled to a fixed
// width.
func (e *Engine) OverlayLogo(ctx context.Context, videoPath, logoPath, outputPath string) error {
	args := []string{
		"-y",
		"-i", videoPath,
		"-i", logoPath,
		"-filter_complex", "[1:v]scale=120:-1[logo];[0:v][logo]overlay=W-w-10:10[vout]",
		"-map", "[vout]",
		"-map", "0:a?",
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "22",
		"-c:a", "copy",
		outputPath,
	}
	return e.run(ctx, "ffmpeg", args)
}

// ExtractFrame grabs a single frame at the given offset, used to derive
// the cover image when none was produced upstream.
func (e *Engine) ExtractFrame(ctx context.Context, videoPath string, offset time.Duration, outputPath string) error {
	args := []string{
		"-y",
		"-ss", formatSeconds(offset),
		"-i", videoPath,
		"-vframes", "1",
		"-q:v", "2",
		outputPath,
	}
	return e.run(ctx, "ffmpeg", args)
}

func (e *Engine) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("path", path).Msg("ffprobe failed")
		return 0, fmt.Errorf("ffprobe execution failed: %w", err)
	}

	seconds, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned unparseable duration %q: %w", strings.TrimSpace(string(output)), err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

func (e *Engine) run(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Str("command", name+" "+strings.Join(args, " ")).
			Str("output", string(output)).
			Msg("media command failed")
		return fmt.Errorf("%s execution failed: %w", name, err)
	}
	return nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

// Package media runs video trim and join operations through an external
// ffmpeg/ffprobe toolchain.
//
// The processor never re-encodes: both operations use stream copy, so
// their cost is I/O bound. All file references resolve under the upload
// directory; names that escape it are rejected.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vingest/vingest/internal/logger"
)

// DefaultMaxDuration is the longest trim slice accepted, in seconds.
const DefaultMaxDuration = 3600

var (
	// ErrInvalidDuration means the requested duration is zero or negative.
	ErrInvalidDuration = errors.New("duration must be greater than zero")

	// ErrDurationTooLong means the requested duration exceeds the maximum.
	ErrDurationTooLong = errors.New("duration exceeds the maximum allowed")

	// ErrInvalidTrimRange means the trim window does not fit the video.
	ErrInvalidTrimRange = errors.New("trim range exceeds video duration")

	// ErrVideoInfo means probing the source video failed.
	ErrVideoInfo = errors.New("failed to probe video")

	// ErrTrim means the trim subprocess failed.
	ErrTrim = errors.New("trim failed")

	// ErrJoin means the join was rejected or its subprocess failed.
	ErrJoin = errors.New("join failed")
)

// Config holds media processor settings.
type Config struct {
	// FFmpegPath is the ffmpeg binary. Default: "ffmpeg" from PATH.
	FFmpegPath string

	// FFprobePath is the ffprobe binary. Default: "ffprobe" from PATH.
	FFprobePath string

	// UploadDir is the directory all file references resolve under.
	UploadDir string

	// MaxDuration caps the trim duration in seconds.
	// Default: DefaultMaxDuration.
	MaxDuration int
}

// DefaultConfig returns the default media configuration for an upload
// directory.
func DefaultConfig(uploadDir string) Config {
	return Config{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		UploadDir:   uploadDir,
		MaxDuration: DefaultMaxDuration,
	}
}

// TrimRequest describes one trim operation. Times are whole seconds.
type TrimRequest struct {
	FileName   string
	StartTime  int
	Duration   int
	OutputFile string
}

// runnerFunc executes a subprocess and returns its stdout and stderr.
type runnerFunc func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

// Processor trims and joins videos. Create one with New.
type Processor struct {
	ffmpeg      string
	ffprobe     string
	uploadDir   string
	maxDuration int
	run         runnerFunc
}

// New creates a processor from cfg.
func New(cfg Config) (*Processor, error) {
	if cfg.UploadDir == "" {
		return nil, errors.New("upload directory is required")
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.MaxDuration <= 0 {
		cfg.MaxDuration = DefaultMaxDuration
	}

	return &Processor{
		ffmpeg:      cfg.FFmpegPath,
		ffprobe:     cfg.FFprobePath,
		uploadDir:   cfg.UploadDir,
		maxDuration: cfg.MaxDuration,
		run:         runCommand,
	}, nil
}

// resolve maps a client-supplied name to a path inside the upload
// directory, rejecting names that escape it.
func (p *Processor) resolve(name string) (string, error) {
	if name == "" {
		return "", errors.New("file name is required")
	}

	path := filepath.Join(p.uploadDir, name)
	rel, err := filepath.Rel(p.uploadDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes upload directory: %s", name)
	}
	return path, nil
}

// Probe returns the duration of a video in seconds.
func (p *Processor) Probe(ctx context.Context, path string) (float64, error) {
	stdout, stderr, err := p.run(ctx, p.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrVideoInfo, commandError(err, stderr))
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(string(stdout)), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: unexpected ffprobe output %q", ErrVideoInfo, strings.TrimSpace(string(stdout)))
	}
	return duration, nil
}

// Trim cuts a window out of a video with stream copy. The window must be
// positive, within the configured maximum, and inside the probed duration
// of the source.
func (p *Processor) Trim(ctx context.Context, req TrimRequest) error {
	if req.Duration <= 0 {
		return ErrInvalidDuration
	}
	if req.Duration > p.maxDuration {
		return fmt.Errorf("%w: %d > %d seconds", ErrDurationTooLong, req.Duration, p.maxDuration)
	}
	if req.StartTime < 0 {
		return fmt.Errorf("%w: negative start time", ErrInvalidTrimRange)
	}

	input, err := p.resolve(req.FileName)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTrim, err)
	}
	output, err := p.resolve(req.OutputFile)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTrim, err)
	}

	probed, err := p.Probe(ctx, input)
	if err != nil {
		return err
	}
	if float64(req.StartTime+req.Duration) > probed {
		return fmt.Errorf("%w: %d+%d > %.2f seconds", ErrInvalidTrimRange, req.StartTime, req.Duration, probed)
	}

	logger.DebugCtx(ctx, "Trimming video",
		logger.Path(input),
		"start", FormatTimestamp(req.StartTime),
		"duration", FormatTimestamp(req.Duration))

	_, stderr, err := p.run(ctx, p.ffmpeg,
		"-i", input,
		"-ss", FormatTimestamp(req.StartTime),
		"-t", FormatTimestamp(req.Duration),
		"-c", "copy",
		output)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrTrim, commandError(err, stderr))
	}
	return nil
}

// Join concatenates two or more videos with the concat demuxer and stream
// copy. All parts must share codec parameters; ffmpeg rejects mixes.
func (p *Processor) Join(ctx context.Context, parts []string, outputFile string) error {
	if len(parts) < 2 {
		return fmt.Errorf("%w: at least two parts are required", ErrJoin)
	}

	resolved := make([]string, 0, len(parts))
	for _, part := range parts {
		path, err := p.resolve(part)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrJoin, err)
		}
		resolved = append(resolved, path)
	}
	output, err := p.resolve(outputFile)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJoin, err)
	}

	list, err := writeConcatList(resolved)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrJoin, err)
	}
	defer func() { _ = os.Remove(list) }()

	logger.DebugCtx(ctx, "Joining videos", "parts", len(parts), logger.Path(output))

	_, stderr, err := p.run(ctx, p.ffmpeg,
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-c", "copy",
		output)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrJoin, commandError(err, stderr))
	}
	return nil
}

// MaxDuration returns the configured trim cap in seconds.
func (p *Processor) MaxDuration() int {
	return p.maxDuration
}

// FormatTimestamp renders whole seconds as HH:MM:SS.
func FormatTimestamp(seconds int) string {
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// writeConcatList writes an ffmpeg concat demuxer list file and returns
// its path. Single quotes in paths use the concat escape '\''.
func writeConcatList(paths []string) (string, error) {
	f, err := os.CreateTemp("", "join-*.txt")
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, path := range paths {
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(path, "'", `'\''`))
		b.WriteString("'\n")
	}

	_, err = f.WriteString(b.String())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// commandError folds the tail of stderr into a subprocess error.
func commandError(err error, stderr []byte) string {
	tail := strings.TrimSpace(string(stderr))
	if len(tail) > 512 {
		tail = "..." + tail[len(tail)-512:]
	}
	if tail == "" {
		return err.Error()
	}
	return fmt.Sprintf("%v: %s", err, tail)
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

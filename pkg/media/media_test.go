package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records invocations and plays back canned results per binary.
type fakeRunner struct {
	calls       [][]string
	probeOut    string
	probeErr    error
	ffmpegErr   error
	ffmpegSderr string

	// listContent captures the concat list file at execution time, before
	// Join removes it.
	listContent string
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	call := append([]string{name}, args...)
	f.calls = append(f.calls, call)

	if filepath.Base(name) == "ffprobe" {
		if f.probeErr != nil {
			return nil, []byte("probe stderr"), f.probeErr
		}
		return []byte(f.probeOut), nil, nil
	}

	isConcat := false
	for i, arg := range args {
		if arg == "-f" && i+1 < len(args) && args[i+1] == "concat" {
			isConcat = true
			break
		}
	}
	if isConcat {
		for i, arg := range args {
			if arg == "-i" && i+1 < len(args) {
				if data, err := os.ReadFile(args[i+1]); err == nil {
					f.listContent = string(data)
				}
				break
			}
		}
	}

	if f.ffmpegErr != nil {
		return nil, []byte(f.ffmpegSderr), f.ffmpegErr
	}
	return nil, nil, nil
}

func newTestProcessor(t *testing.T, runner *fakeRunner) *Processor {
	t.Helper()

	p, err := New(DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	p.run = runner.run
	return p
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)

	p, err := New(Config{UploadDir: "uploads"})
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxDuration, p.MaxDuration())
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds int
		want    string
	}{
		{0, "00:00:00"},
		{59, "00:00:59"},
		{60, "00:01:00"},
		{90, "00:01:30"},
		{3599, "00:59:59"},
		{3600, "01:00:00"},
		{7325, "02:02:05"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatTimestamp(tt.seconds))
	}
}

func TestProbe(t *testing.T) {
	runner := &fakeRunner{probeOut: "123.456000\n"}
	p := newTestProcessor(t, runner)

	duration, err := p.Probe(context.Background(), "in.mp4")
	require.NoError(t, err)
	assert.InDelta(t, 123.456, duration, 0.001)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{
		"ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		"in.mp4",
	}, runner.calls[0])
}

func TestProbeBadOutput(t *testing.T) {
	runner := &fakeRunner{probeOut: "N/A\n"}
	p := newTestProcessor(t, runner)

	_, err := p.Probe(context.Background(), "in.mp4")
	assert.ErrorIs(t, err, ErrVideoInfo)
}

func TestTrimArgv(t *testing.T) {
	runner := &fakeRunner{probeOut: "3600.0"}
	p := newTestProcessor(t, runner)

	err := p.Trim(context.Background(), TrimRequest{
		FileName:   "movie.mp4",
		StartTime:  90,
		Duration:   30,
		OutputFile: "clip.mp4",
	})
	require.NoError(t, err)

	require.Len(t, runner.calls, 2)
	assert.Equal(t, []string{
		"ffmpeg",
		"-i", filepath.Join(p.uploadDir, "movie.mp4"),
		"-ss", "00:01:30",
		"-t", "00:00:30",
		"-c", "copy",
		filepath.Join(p.uploadDir, "clip.mp4"),
	}, runner.calls[1])
}

func TestTrimValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("ZeroDuration", func(t *testing.T) {
		runner := &fakeRunner{}
		p := newTestProcessor(t, runner)

		err := p.Trim(ctx, TrimRequest{FileName: "a.mp4", Duration: 0, OutputFile: "b.mp4"})
		assert.ErrorIs(t, err, ErrInvalidDuration)
		assert.Empty(t, runner.calls)
	})

	t.Run("DurationTooLong", func(t *testing.T) {
		runner := &fakeRunner{}
		p := newTestProcessor(t, runner)

		err := p.Trim(ctx, TrimRequest{FileName: "a.mp4", Duration: 3601, OutputFile: "b.mp4"})
		assert.ErrorIs(t, err, ErrDurationTooLong)
		assert.Empty(t, runner.calls)
	})

	t.Run("NegativeStart", func(t *testing.T) {
		runner := &fakeRunner{}
		p := newTestProcessor(t, runner)

		err := p.Trim(ctx, TrimRequest{FileName: "a.mp4", StartTime: -1, Duration: 10, OutputFile: "b.mp4"})
		assert.ErrorIs(t, err, ErrInvalidTrimRange)
		assert.Empty(t, runner.calls)
	})

	t.Run("ProbeFailure", func(t *testing.T) {
		runner := &fakeRunner{probeErr: errors.New("exit status 1")}
		p := newTestProcessor(t, runner)

		err := p.Trim(ctx, TrimRequest{FileName: "a.mp4", Duration: 10, OutputFile: "b.mp4"})
		assert.ErrorIs(t, err, ErrVideoInfo)
		assert.Len(t, runner.calls, 1)
	})

	t.Run("RangePastEnd", func(t *testing.T) {
		runner := &fakeRunner{probeOut: "100.0"}
		p := newTestProcessor(t, runner)

		err := p.Trim(ctx, TrimRequest{FileName: "a.mp4", StartTime: 95, Duration: 10, OutputFile: "b.mp4"})
		assert.ErrorIs(t, err, ErrInvalidTrimRange)
		// Probe ran, ffmpeg did not.
		assert.Len(t, runner.calls, 1)
	})
}

func TestTrimRejectsTraversal(t *testing.T) {
	runner := &fakeRunner{probeOut: "100.0"}
	p := newTestProcessor(t, runner)

	err := p.Trim(context.Background(), TrimRequest{
		FileName:   "../../etc/passwd",
		Duration:   10,
		OutputFile: "out.mp4",
	})
	assert.ErrorIs(t, err, ErrTrim)
	assert.Empty(t, runner.calls)
}

func TestTrimSubprocessFailure(t *testing.T) {
	runner := &fakeRunner{
		probeOut:    "3600.0",
		ffmpegErr:   errors.New("exit status 1"),
		ffmpegSderr: "movie.mp4: Invalid data found when processing input",
	}
	p := newTestProcessor(t, runner)

	err := p.Trim(context.Background(), TrimRequest{FileName: "movie.mp4", Duration: 10, OutputFile: "out.mp4"})
	require.ErrorIs(t, err, ErrTrim)
	assert.Contains(t, err.Error(), "Invalid data found")
}

func TestJoinArgvAndList(t *testing.T) {
	runner := &fakeRunner{}
	p := newTestProcessor(t, runner)

	err := p.Join(context.Background(), []string{"part1.mp4", "part2.mp4"}, "joined.mp4")
	require.NoError(t, err)

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, "ffmpeg", call[0])
	assert.Equal(t, []string{"-f", "concat", "-safe", "0", "-i"}, call[1:6])
	assert.Equal(t, []string{"-c", "copy", filepath.Join(p.uploadDir, "joined.mp4")}, call[7:])

	want := "file '" + filepath.Join(p.uploadDir, "part1.mp4") + "'\n" +
		"file '" + filepath.Join(p.uploadDir, "part2.mp4") + "'\n"
	assert.Equal(t, want, runner.listContent)

	// The list file is removed after the join.
	_, err = os.Stat(call[6])
	assert.True(t, os.IsNotExist(err))
}

func TestJoinEscapesQuotes(t *testing.T) {
	runner := &fakeRunner{}
	p := newTestProcessor(t, runner)

	err := p.Join(context.Background(), []string{"it's.mp4", "plain.mp4"}, "out.mp4")
	require.NoError(t, err)
	assert.Contains(t, runner.listContent, `it'\''s.mp4`)
}

func TestJoinTooFewParts(t *testing.T) {
	runner := &fakeRunner{}
	p := newTestProcessor(t, runner)

	err := p.Join(context.Background(), []string{"only.mp4"}, "out.mp4")
	assert.ErrorIs(t, err, ErrJoin)
	assert.Empty(t, runner.calls)
}

func TestJoinRejectsTraversal(t *testing.T) {
	runner := &fakeRunner{}
	p := newTestProcessor(t, runner)

	err := p.Join(context.Background(), []string{"a.mp4", "../outside.mp4"}, "out.mp4")
	assert.ErrorIs(t, err, ErrJoin)
	assert.Empty(t, runner.calls)
}

func TestJoinSubprocessFailure(t *testing.T) {
	runner := &fakeRunner{
		ffmpegErr:   errors.New("exit status 1"),
		ffmpegSderr: "concat: codec mismatch between parts",
	}
	p := newTestProcessor(t, runner)

	err := p.Join(context.Background(), []string{"a.mp4", "b.mp4"}, "out.mp4")
	require.ErrorIs(t, err, ErrJoin)
	assert.Contains(t, err.Error(), "codec mismatch")
}

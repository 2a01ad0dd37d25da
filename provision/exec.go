package provision

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
)

// ExecRunner shells out to the host's utilities. Output is captured; when
// Stream is set it is also copied there as it is produced.
type ExecRunner struct {
	Stream io.Writer
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), "DEBIAN_FRONTEND=noninteractive")

	var buf bytes.Buffer
	var out io.Writer = &buf
	if r.Stream != nil {
		out = io.MultiWriter(&buf, r.Stream)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	res := Result{Output: buf.String()}
	if err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return res, &CommandError{
			Command:  append([]string{name}, args...),
			ExitCode: exitCode,
			Output:   res.Output,
			Err:      err,
		}
	}
	return res, nil
}

// DryRunner logs each command instead of running it and always succeeds.
type DryRunner struct{}

func (DryRunner) Run(_ context.Context, name string, args ...string) (Result, error) {
	log.Info("[DRY RUN] Would run: %s", strings.Join(append([]string{name}, args...), " "))
	return Result{}, nil
}

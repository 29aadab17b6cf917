package tools

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go-gamebanana-install/internal/models"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultSevenZipPath = "7z"
	DefaultXDeltaPath   = "xdelta"
)

// Extractor unpacks an archive into a destination directory.
type Extractor interface {
	Extract(archive, destDir string) error
}

// Patcher regenerates output by applying patch to source.
type Patcher interface {
	ApplyPatch(source, patch, output string) error
}

// Result holds what a finished child process produced.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes name with args, waits for it and captures its output. A process
// that cannot be started returns ErrExternalTool; a non-zero exit is reported
// through Result.ExitCode with a nil error.
func Run(name string, args ...string) (Result, error) {
	var stdout, stderr bytes.Buffer
	// #nosec G204
	cmd := exec.Command(name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debugf("Running %s %s", name, strings.Join(args, " "))
	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		log.WithError(err).Errorf("Could not launch %s", name)
		return res, fmt.Errorf("%w: launching %s: %v", models.ErrExternalTool, name, err)
	}

	log.WithField("exit", res.ExitCode).Debugf("%s finished", name)
	if res.Stdout != "" {
		log.Tracef("%s stdout: %s", name, res.Stdout)
	}
	if res.Stderr != "" {
		log.Debugf("%s stderr: %s", name, res.Stderr)
	}
	return res, nil
}

// SevenZip extracts archives with the 7-Zip command line tool.
type SevenZip struct {
	Path string
}

// Extract runs `7z x -o<destDir> -y <archive>`.
func (s SevenZip) Extract(archive, destDir string) error {
	bin := s.Path
	if bin == "" {
		bin = DefaultSevenZipPath
	}

	res, err := Run(bin, "x", "-o"+destDir, "-y", archive)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrExtraction, err)
	}
	if res.ExitCode != 0 {
		log.Errorf("%s exited with code %d extracting %s", bin, res.ExitCode, archive)
		return fmt.Errorf("%w: %s exited with code %d: %s", models.ErrExtraction, bin, res.ExitCode, tail(res.Stderr))
	}
	return nil
}

// XDelta applies VCDIFF patches with the xdelta command line tool.
type XDelta struct {
	Path string
}

// ApplyPatch runs `xdelta -d -f -s <source> <patch> <output>`.
func (x XDelta) ApplyPatch(source, patch, output string) error {
	bin := x.Path
	if bin == "" {
		bin = DefaultXDeltaPath
	}

	res, err := Run(bin, "-d", "-f", "-s", source, patch, output)
	if err != nil {
		return err
	}
	if res.ExitCode != 0 {
		log.Errorf("%s exited with code %d applying %s", bin, res.ExitCode, patch)
		return fmt.Errorf("%w: %s exited with code %d: %s", models.ErrExternalTool, bin, res.ExitCode, tail(res.Stderr))
	}
	return nil
}

// tail keeps the last line of tool output for error messages.
func tail(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package supervisor runs one external command to completion or to a
// controlled termination, without leaving defunct or orphaned children.
package supervisor

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/gribsync/pkg/fault"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultGracePeriod bounds the wait between a termination request and a kill
	DefaultGracePeriod = 5 * time.Second
	// DefaultPrefix marks log lines that came from the transfer tool
	DefaultPrefix = "rclone"

	maxLineSize = 1 << 20
)

// 📄 Line is one classified line of the child's standard error
type Line struct {
	Level zerolog.Level
	Text  string
}

// 📦 Result is the outcome of one Execute call
type Result struct {
	Argv      []string
	PID       int
	Succeeded bool
	ExitCode  int
	Stdout    []byte
	Lines     []Line
	Cause     fault.Cause
	Duration  time.Duration
}

// 🛡️ Supervisor executes external commands under a timeout
type Supervisor struct {
	Logger      *zerolog.Logger
	Classifier  Classifier
	Prefix      string
	GracePeriod time.Duration
	// Redact rewrites argv before it is logged, e.g. to hide credentials
	Redact func([]string) []string
}

// 🏭 New creates a supervisor with the default classifier and grace period
func New(logger *zerolog.Logger) *Supervisor {
	return &Supervisor{
		Logger:      logger,
		Classifier:  DefaultClassifier(),
		Prefix:      DefaultPrefix,
		GracePeriod: DefaultGracePeriod,
	}
}

type waitResult struct {
	read error
	wait error
}

// 🏃 Execute runs argv and waits for it up to timeout (no limit when zero).
//
// The returned Result is never nil. The error is nil only when the command
// exited with status 0; otherwise it is a *fault.Error. A cancelled ctx
// drains the child first and then returns an error wrapping ctx.Err().
func (s *Supervisor) Execute(ctx context.Context, argv []string, timeout time.Duration) (*Result, error) {
	res := &Result{Argv: append([]string(nil), argv...), ExitCode: -1}
	if len(argv) == 0 {
		res.Cause = fault.CauseIO
		return res, fault.Newf(fault.CauseIO, "empty command")
	}
	if err := ctx.Err(); err != nil {
		res.Cause = fault.CauseCancelled
		return res, fault.New(fault.CauseCancelled, err)
	}

	logger := s.logger().With().Str("command", argv[0]).Logger()

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = sysProcAttr()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		res.Cause = fault.CauseIO
		return res, fault.New(fault.CauseIO, errors.Errorf("opening stdout pipe: %w", err))
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		res.Cause = fault.CauseIO
		return res, fault.New(fault.CauseIO, errors.Errorf("opening stderr pipe: %w", err))
	}

	logger.Debug().Strs("argv", s.loggable(argv)).Dur("timeout", timeout).Msg("starting command")

	start := time.Now()
	if err := cmd.Start(); err != nil {
		res.Cause = fault.CauseIO
		return res, fault.New(fault.CauseIO, errors.Errorf("starting %s: %w", argv[0], err))
	}
	res.PID = cmd.Process.Pid

	var out bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		if _, err := io.Copy(&out, stdout); err != nil {
			return errors.Errorf("reading stdout: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return s.drainStderr(&logger, stderr, &res.Lines)
	})

	// pipes must reach EOF before Wait closes them
	done := make(chan waitResult, 1)
	go func() {
		readErr := g.Wait()
		done <- waitResult{read: readErr, wait: cmd.Wait()}
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	var outcome waitResult
	select {
	case outcome = <-done:
	case <-timer:
		res.Cause = fault.CauseTimedOut
		logger.Warn().Int("pid", res.PID).Dur("timeout", timeout).Msg("command timed out, terminating")
		outcome = s.terminate(&logger, cmd, done)
	case <-ctx.Done():
		res.Cause = fault.CauseCancelled
		logger.Warn().Int("pid", res.PID).Msg("shutdown requested, draining command")
		outcome = s.terminate(&logger, cmd, done)
	}

	res.Duration = time.Since(start)
	res.Stdout = out.Bytes()
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}

	switch res.Cause {
	case fault.CauseTimedOut:
		return res, &fault.Error{
			Cause:    fault.CauseTimedOut,
			ExitCode: res.ExitCode,
			Err:      errors.Errorf("%s did not finish within %s", argv[0], timeout),
		}
	case fault.CauseCancelled:
		return res, &fault.Error{Cause: fault.CauseCancelled, ExitCode: res.ExitCode, Err: ctx.Err()}
	}

	if outcome.wait != nil {
		var exitErr *exec.ExitError
		if errors.As(outcome.wait, &exitErr) {
			res.Cause = fault.CauseNonZeroExit
			return res, &fault.Error{
				Cause:    fault.CauseNonZeroExit,
				ExitCode: res.ExitCode,
				Err:      errors.Errorf("%s exited with status %d", argv[0], res.ExitCode),
			}
		}
		res.Cause = fault.CauseIO
		return res, fault.New(fault.CauseIO, errors.Errorf("waiting for %s: %w", argv[0], outcome.wait))
	}
	if outcome.read != nil {
		res.Cause = fault.CauseIO
		return res, fault.New(fault.CauseIO, outcome.read)
	}

	res.Succeeded = true
	logger.Debug().Dur("duration", res.Duration).Msg("command finished")
	return res, nil
}

// terminate asks the child's process group to stop, then kills it once the
// grace period has elapsed. It always returns after the child was reaped.
func (s *Supervisor) terminate(logger *zerolog.Logger, cmd *exec.Cmd, done <-chan waitResult) waitResult {
	if err := terminate(cmd); err != nil {
		logger.Debug().Err(err).Msg("sending termination signal")
	}

	grace := s.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	t := time.NewTimer(grace)
	defer t.Stop()

	select {
	case r := <-done:
		return r
	case <-t.C:
		logger.Warn().Dur("grace_period", grace).Msg("grace period elapsed, killing command")
		if err := kill(cmd); err != nil {
			logger.Debug().Err(err).Msg("sending kill signal")
		}
		return <-done
	}
}

// drainStderr classifies and logs every non-empty line as it arrives
func (s *Supervisor) drainStderr(logger *zerolog.Logger, r io.Reader, lines *[]Line) error {
	prefix := s.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}

	classifier := s.Classifier
	if len(classifier.Rules) == 0 && classifier.Default == zerolog.DebugLevel {
		classifier = DefaultClassifier()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		level := classifier.Classify(text)
		*lines = append(*lines, Line{Level: level, Text: text})
		logger.WithLevel(level).Msgf("%s: %s", prefix, text)
	}
	if err := scanner.Err(); err != nil {
		// keep the child from blocking on a full pipe
		_, _ = io.Copy(io.Discard, r)
		return errors.Errorf("reading stderr: %w", err)
	}
	return nil
}

func (s *Supervisor) loggable(argv []string) []string {
	if s.Redact == nil {
		return argv
	}
	return s.Redact(argv)
}

func (s *Supervisor) logger() *zerolog.Logger {
	if s.Logger == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return s.Logger
}

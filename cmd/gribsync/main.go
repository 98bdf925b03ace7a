package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/walteh/gribsync/pkg/fault"
	"gitlab.com/tozd/go/errors"
)

// exitInterrupted is the conventional status for a run stopped by SIGINT
const exitInterrupted = 130

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout))
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	logger := rootLogger()
	if fault.IsCancelled(err) || errors.Is(err, context.Canceled) {
		logger.Warn().Err(err).Msg("stopped by shutdown request")
		return exitInterrupted
	}
	logger.Error().Err(err).Msg("command failed")
	return 1
}

// rootLogger is the logger configured by the root command, or a stderr
// logger when the command failed before logging was set up
func rootLogger() *zerolog.Logger {
	if rootOpts.Logger != nil {
		return rootOpts.Logger
	}
	l := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	return &l
}

package cmdlog

import (
	"time"

	"github.com/rs/zerolog"

	"influencekit/internal/metrics"
)

// Run executes one CLI command, counting it and logging the outcome.
func Run(logger zerolog.Logger, cmd string, f func() error) error {
	start := time.Now()
	metrics.IncCommandRun(cmd)
	err := f()
	metrics.ObserveCommandDuration(cmd, start)
	if err != nil {
		metrics.IncCommandError(cmd)
		logger.Error().Err(err).Str("command", cmd).Msg(cmd + "_error")
	} else {
		logger.Info().Str("command", cmd).Dur("took", time.Since(start)).Msg(cmd + "_ok")
	}
	return err
}

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	pkgerrors "github.com/magnatepoint/mvp1-sub001/pkg/errors"
	"github.com/magnatepoint/mvp1-sub001/pkg/logger"
)

// CLIErrorHandler provides user-friendly error reporting for CLI operations.
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler.
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: viper.GetBool("verbose"),
	}
}

// Exit logs the error, prints pipeline error context to stderr, and returns
// the error for cobra to surface.
func (h *CLIErrorHandler) Exit(err error) error {
	if err == nil {
		return nil
	}

	h.logger.WithError(err).Error("Command failed")

	if pipelineErr, ok := pkgerrors.AsPipelineError(err); ok {
		h.printPipelineError(pipelineErr)
	}

	return err
}

func (h *CLIErrorHandler) printPipelineError(err *pkgerrors.PipelineError) {
	if len(err.Context) > 0 {
		fmt.Fprintf(os.Stderr, "Context:\n")
		for key, value := range err.Context {
			fmt.Fprintf(os.Stderr, "  %s: %v\n", key, value)
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(os.Stderr, "Suggestion: %s\n", err.Suggestion)
	}

	if h.verbose && err.Cause != nil {
		fmt.Fprintf(os.Stderr, "Underlying error: %v\n", err.Cause)
	}
}

// Package cli implements the luna commands.
package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:           "luna",
	Short:         "Narrated, illustrated interactive fiction server",
	Long:          "Luna runs a fairy narrator over a text model, gives it a voice and paints each scene.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	err := RootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	return err
}

// NewLogger builds the root logger. format is text, json or logfmt.
func NewLogger(w io.Writer, level, format string) (*log.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	opts := log.Options{
		Level:           lvl,
		ReportTimestamp: true,
		Prefix:          "luna",
	}
	switch strings.ToLower(format) {
	case "", "text":
		opts.Formatter = log.TextFormatter
	case "json":
		opts.Formatter = log.JSONFormatter
	case "logfmt":
		opts.Formatter = log.LogfmtFormatter
	default:
		return nil, fmt.Errorf("unknown LOG_FORMAT %q", format)
	}
	return log.NewWithOptions(w, opts), nil
}

// Package cli implements the bulkedit command tree: bulk-editing
// availability rules across catalog items with resumable, checkpointed
// batch runs.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/smartdev1/tours-bulk-editor/internal/batch"
	"github.com/smartdev1/tours-bulk-editor/internal/checkpoint"
	"github.com/smartdev1/tours-bulk-editor/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose   bool
	Format    string // "json" | "text"
	DBPath    string // SQLite item database
	RedisAddr string // checkpoint backend, or "memory" for in-process
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the bulkedit CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bulkedit",
		Short: "Bulk availability rule editor",
		Long: `Apply one availability change set across many catalog items in
checkpointed chunks. Interrupted runs resume from their last checkpoint
instead of starting over.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "bulkedit.db", "item database path")
	cmd.PersistentFlags().StringVar(&opts.RedisAddr, "redis", "localhost:6379",
		`checkpoint backend address, or "memory" for in-process checkpoints`)

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewResumeCommand(opts))
	cmd.AddCommand(NewCancelCommand(opts))
	cmd.AddCommand(NewProgressCommand(opts))
	cmd.AddCommand(NewPreviewCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewItemsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newFormatter builds the output formatter for a command, writing results
// to stdout and diagnostics to stderr.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// backends bundles the stores a batch command needs, with a single Close.
type backends struct {
	items       *store.Store
	checkpoints checkpoint.Store
	closers     []io.Closer
}

func (b *backends) Close() {
	for _, c := range b.closers {
		c.Close()
	}
}

// openBackends opens the item database and the checkpoint backend.
func openBackends(ctx context.Context, opts *RootOptions) (*backends, error) {
	items, err := store.Open(opts.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("open item database %s", opts.DBPath), err)
	}
	b := &backends{items: items, closers: []io.Closer{items}}

	if opts.RedisAddr == "memory" {
		b.checkpoints = checkpoint.NewMemory()
		return b, nil
	}
	redis, err := checkpoint.DialRedis(ctx, opts.RedisAddr)
	if err != nil {
		b.Close()
		return nil, WrapExitError(ExitFailure,
			fmt.Sprintf("connect checkpoint backend %s", opts.RedisAddr), err)
	}
	b.checkpoints = redis
	b.closers = append(b.closers, redis)
	return b, nil
}

// newOrchestrator wires the orchestrator over opened backends.
func newOrchestrator(opts *RootOptions, b *backends, cfg batch.Config) *batch.Orchestrator {
	logger := slog.Default()
	if !opts.Verbose {
		logger = slog.New(slog.DiscardHandler)
	}
	return batch.New(b.items, b.checkpoints,
		batch.WithConfig(cfg),
		batch.WithLogger(logger),
	)
}

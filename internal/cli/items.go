package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/smartdev1/tours-bulk-editor/internal/store"
)

// ItemsOptions holds flags for the items subcommands.
type ItemsOptions struct {
	*RootOptions
	Name string
}

// NewItemsCommand creates the items command group for managing the catalog
// the batch commands operate on.
func NewItemsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Manage catalog items",
	}
	cmd.AddCommand(newItemsAddCommand(rootOpts))
	cmd.AddCommand(newItemsListCommand(rootOpts))
	return cmd
}

func newItemsAddCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ItemsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "add <item-id>...",
		Short:         "Add items to the catalog (idempotent)",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return addItems(cmd, opts, args)
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (single item only)")
	return cmd
}

func addItems(cmd *cobra.Command, opts *ItemsOptions, itemIDs []string) error {
	f := newFormatter(opts.RootOptions, cmd)
	if opts.Name != "" && len(itemIDs) > 1 {
		f.Error(ErrCodeGeneric, "--name only applies when adding a single item", nil)
		return NewExitError(ExitCommandError, "--name with multiple items")
	}

	// Catalog maintenance needs no checkpoint backend.
	ctx := cmd.Context()
	items, err := store.Open(opts.DBPath)
	if err != nil {
		f.Error(ErrCodeStoreOpen, err.Error(), nil)
		return WrapExitError(ExitCommandError, "open item database", err)
	}
	defer items.Close()

	for _, id := range itemIDs {
		if err := items.UpsertItem(ctx, id, opts.Name); err != nil {
			f.Error(ErrCodeStoreOpen, err.Error(), nil)
			return WrapExitError(ExitFailure, "add item", err)
		}
	}

	if opts.Format == "json" {
		return f.Success(map[string]any{"added": itemIDs})
	}
	fmt.Fprintf(f.Writer, "Added %d item(s): %s\n", len(itemIDs), strings.Join(itemIDs, ", "))
	return nil
}

func newItemsListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List catalog item IDs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listItems(cmd, rootOpts)
		},
	}
	return cmd
}

func listItems(cmd *cobra.Command, opts *RootOptions) error {
	f := newFormatter(opts, cmd)
	ctx := cmd.Context()

	items, err := store.Open(opts.DBPath)
	if err != nil {
		f.Error(ErrCodeStoreOpen, err.Error(), nil)
		return WrapExitError(ExitCommandError, "open item database", err)
	}
	defer items.Close()

	ids, err := items.ListItemIDs(ctx)
	if err != nil {
		f.Error(ErrCodeStoreOpen, err.Error(), nil)
		return WrapExitError(ExitFailure, "list items", err)
	}

	if opts.Format == "json" {
		return f.Success(map[string]any{"items": ids})
	}
	for _, id := range ids {
		fmt.Fprintln(f.Writer, id)
	}
	return nil
}

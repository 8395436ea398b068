package cli

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gauge/internal/engine"
	"github.com/roach88/gauge/internal/record"
)

// NewRecordCommand creates the record command group.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Create and inspect measurement records",
	}
	cmd.AddCommand(newRecordCreateCommand(rootOpts))
	cmd.AddCommand(newRecordBeginCommand(rootOpts))
	cmd.AddCommand(newRecordShowCommand(rootOpts))
	cmd.AddCommand(newRecordListCommand(rootOpts))
	return cmd
}

// recordAction runs fn against an open engine and prints the record it
// returns.
func recordAction(opts *RootOptions, cmd *cobra.Command, fn func(*engine.Engine) (*engine.RecordView, error)) error {
	formatter := newFormatter(opts, cmd)
	eng, closeFn, err := openEngine(opts, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	defer closeFn()

	view, err := fn(eng)
	if err != nil {
		return formatter.Fail(err)
	}
	return formatter.Result(view, func(w io.Writer) { writeRecord(w, view) })
}

func newRecordCreateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create <product-id>",
		Short: "Create a TODO record pinned to the current product definition",
		Example: `  gauge record create bracket
  gauge record create bracket --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return recordAction(rootOpts, cmd, func(eng *engine.Engine) (*engine.RecordView, error) {
				return eng.CreateRecord(cmd.Context(), args[0])
			})
		},
	}
}

func newRecordBeginCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "begin <record-id> <batch-number>",
		Short:         "Assign the batch number so measurement can start",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return recordAction(rootOpts, cmd, func(eng *engine.Engine) (*engine.RecordView, error) {
				return eng.BeginRecord(cmd.Context(), args[0], args[1])
			})
		},
	}
}

func newRecordShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <record-id>",
		Short:         "Show a record with its progress",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return recordAction(rootOpts, cmd, func(eng *engine.Engine) (*engine.RecordView, error) {
				return eng.ShowRecord(cmd.Context(), args[0])
			})
		},
	}
}

var recordStatuses = []string{
	string(record.StatusTodo),
	string(record.StatusInProgress),
	string(record.StatusCompleted),
}

func newRecordListCommand(rootOpts *RootOptions) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:           "list <product-id>",
		Short:         "List the records of a product",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			status = strings.ToUpper(status)
			if status != "" && !slices.Contains(recordStatuses, status) {
				return formatter.Fail(NewExitError(ExitCommandError,
					fmt.Sprintf("invalid status %q: must be one of %v", status, recordStatuses)))
			}

			eng, closeFn, err := openEngine(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer closeFn()

			views, err := eng.ListRecords(cmd.Context(), args[0], record.Status(status))
			if err != nil {
				return formatter.Fail(err)
			}
			return formatter.Result(views, func(w io.Writer) {
				if len(views) == 0 {
					fmt.Fprintln(w, "No records")
					return
				}
				for _, v := range views {
					fmt.Fprintf(w, "%-36s  %-11s  %-12s  %6.2f%%\n", v.ID, v.Status, v.BatchNumber, v.Progress)
				}
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only list records in this status (TODO|IN_PROGRESS|COMPLETED)")
	return cmd
}

func writeRecord(w io.Writer, view *engine.RecordView) {
	fmt.Fprintf(w, "Record %s\n", view.ID)
	fmt.Fprintf(w, "  product:  %s @ %s\n", view.ProductID, shortVersion(view.DefinitionVersion))
	if view.BatchNumber != "" {
		fmt.Fprintf(w, "  batch:    %s\n", view.BatchNumber)
	}
	fmt.Fprintf(w, "  status:   %s (%s)\n", view.Status, view.SampleStatus)
	fmt.Fprintf(w, "  progress: %.2f%% (%d of %d items)\n", view.Progress, view.TotalSavedItems, view.TotalItems)
	if view.OverallResult != nil {
		fmt.Fprintf(w, "  overall:  %s\n", verdict(*view.OverallResult))
	}
}

func verdict(ok bool) string {
	if ok {
		return "OK"
	}
	return "NG"
}

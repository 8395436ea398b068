package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/gauge/internal/engine"
	"github.com/roach88/gauge/internal/footprint"
	"github.com/roach88/gauge/internal/record"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <record-id> <item> <samples-file>",
		Short: "Confirm the samples of one measurement item",
		Long: `Confirm the samples of one item. The samples become the item's last check:
a later save passes the staleness gate only while its raw samples for the item
stay the same.

The samples file is JSON or YAML holding either a list of samples or an object
with "samples" and "variable_values". Use - to read from standard input.

Example:
  echo '[{"sample_index":1,"single_value":"12.5"}]' | gauge check rec-1 thickness_a -`,
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], args[1], args[2], cmd)
		},
	}
}

func runCheck(opts *RootOptions, recordID, item, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	in, err := LoadCheckInput(cmd, item, path)
	if err != nil {
		return formatter.Fail(err)
	}

	eng, closeFn, err := openEngine(opts, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	defer closeFn()

	res, err := eng.CheckItem(cmd.Context(), recordID, in)
	if err != nil {
		return formatter.Fail(err)
	}
	return formatter.Result(res, func(w io.Writer) {
		fmt.Fprintf(w, "✓ %s checked (%d samples, fingerprint %s)\n",
			res.NameID, len(res.Snapshot.Samples), shortVersion(res.Snapshot.Fingerprint))
		switch {
		case res.EvaluationError != nil:
			fmt.Fprintf(w, "  not evaluated: %s: %s\n", res.EvaluationError.Code, res.EvaluationError.Message)
		case res.Result != nil && res.Result.Status != nil:
			fmt.Fprintf(w, "  result: %s\n", verdict(*res.Result.Status))
		}
	})
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	return newWriteCommand(rootOpts, engine.OpSave,
		"Store partial measurement results",
		`Store partial results. Every raw-input item in the payload must carry the
samples of its last check; otherwise the whole request is rejected with
VALIDATION_REQUIRED, listing the changed items and every item depending on
them. Nothing is stored on rejection.`)
}

// NewSubmitCommand creates the submit command.
func NewSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	return newWriteCommand(rootOpts, engine.OpSubmit,
		"Store final measurement results and complete the record",
		`Store final results and complete the record. The staleness gate applies as
for save; in addition every item that is not SKIP_CHECK must hold a judged
result, or the request fails with INCOMPLETE_SUBMISSION.`)
}

func newWriteCommand(rootOpts *RootOptions, op engine.Op, short, long string) *cobra.Command {
	return &cobra.Command{
		Use:   string(op) + " <record-id> <payload-file>",
		Short: short,
		Long: long + `

The payload file is JSON or YAML holding either {"version", "measurement_results"}
or a bare list of measurement results. Use - to read from standard input.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWrite(rootOpts, op, args[0], args[1], cmd)
		},
	}
}

func runWrite(opts *RootOptions, op engine.Op, recordID, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	req, err := LoadSaveRequest(cmd, path)
	if err != nil {
		return formatter.Fail(err)
	}
	formatter.VerboseLog("Loaded %d measurement result(s) from %s", len(req.MeasurementResults), path)

	eng, closeFn, err := openEngine(opts, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	defer closeFn()

	res, err := eng.SubmitOrSave(cmd.Context(), recordID, op, req)
	if err != nil {
		exitErr := formatter.Fail(err)
		var se *footprint.StalenessError
		if formatter.Format != "json" && errors.As(err, &se) {
			writeWarnings(formatter.Writer, se)
		}
		return exitErr
	}
	return formatter.Result(res, func(w io.Writer) { writeSaveResult(w, op, res) })
}

func writeSaveResult(w io.Writer, op engine.Op, res *engine.SaveResult) {
	verb := "Saved"
	if op == engine.OpSubmit {
		verb = "Submitted"
	}
	fmt.Fprintf(w, "✓ %s %d item(s) to %s\n", verb, len(res.Items), res.MeasurementID)
	for _, it := range res.Items {
		fmt.Fprintf(w, "  %-24s %s\n", it.NameID, itemVerdict(it))
	}
	fmt.Fprintf(w, "status: %s (%s), progress %.2f%%\n", res.Status, res.SampleStatus, res.Progress)
	if res.OverallResult != nil {
		fmt.Fprintf(w, "overall: %s\n", verdict(*res.OverallResult))
	}
}

func itemVerdict(it *record.ItemResult) string {
	if it.Status == nil {
		return "-"
	}
	return verdict(*it.Status)
}

func writeWarnings(w io.Writer, se *footprint.StalenessError) {
	for _, warn := range se.Warnings {
		fmt.Fprintf(w, "  %-8s %-24s %s\n", warn.Level, warn.NameID, warn.Reason)
		if warn.Level == footprint.LevelCritical {
			fmt.Fprintf(w, "           checked %s, now %s\n",
				formatSamples(warn.LastCheckValues), formatSamples(warn.CurrentValues))
		}
	}
}

func formatSamples(samples []record.Sample) string {
	parts := make([]string, len(samples))
	for i, s := range samples {
		parts[i] = fmt.Sprint(s.CanonicalValue())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

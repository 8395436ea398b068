package cli

import (
	"errors"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/gauge/internal/engine"
	"github.com/roach88/gauge/internal/product"
)

// FileResult is the validation outcome of one product file.
type FileResult struct {
	Path      string          `json:"path"`
	Valid     bool            `json:"valid"`
	ProductID string          `json:"product_id,omitempty"`
	Version   string          `json:"definition_version,omitempty"`
	Items     int             `json:"items,omitempty"`
	Error     *CLIError       `json:"error,omitempty"`
	Issues    []product.Issue `json:"issues,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool         `json:"valid"`
	Files []FileResult `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <product-file>...",
		Short: "Validate product definitions without storing them",
		Long: `Validate product definition files (.json, .yaml, .yml or .cue).

Every formula is parsed and every reference resolved against the items that
precede it. All issues of a file are reported together. Files are validated
concurrently; nothing is written to the database.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	result := ValidateFiles(paths)
	for _, fr := range result.Files {
		formatter.VerboseLog("Validated %s: valid=%t", fr.Path, fr.Valid)
	}

	if err := formatter.Result(result, func(w io.Writer) { writeValidation(w, result) }); err != nil {
		return err
	}
	if !result.Valid {
		invalid := 0
		for _, fr := range result.Files {
			if !fr.Valid {
				invalid++
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed for %d of %d file(s)", invalid, len(result.Files)))
	}
	return nil
}

// ValidateFiles loads and validates every path, keeping the order of paths
// in the result.
func ValidateFiles(paths []string) ValidationResult {
	files := make([]FileResult, len(paths))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			files[i] = validateFile(path)
			return nil
		})
	}
	_ = g.Wait()

	result := ValidationResult{Valid: true, Files: files}
	for _, fr := range files {
		if !fr.Valid {
			result.Valid = false
		}
	}
	return result
}

func validateFile(path string) FileResult {
	fr := FileResult{Path: path}
	doc, err := product.LoadFile(path)
	if err != nil {
		fr.Error = describe(err)
		return fr
	}
	fr.ProductID = doc.ID

	def, err := product.Validate(doc.MeasurementPoints)
	if err != nil {
		fr.Error = describe(err)
		var ve *product.ValidationError
		if errors.As(err, &ve) {
			fr.Issues = ve.Issues
		}
		return fr
	}
	fr.Valid = true
	fr.Version = def.Version
	fr.Items = len(def.Items)
	return fr
}

func describe(err error) *CLIError {
	info := engine.Describe(err)
	return &CLIError{Code: string(info.Code), Message: info.Message}
}

func writeValidation(w io.Writer, result ValidationResult) {
	for _, fr := range result.Files {
		if fr.Valid {
			fmt.Fprintf(w, "✓ %s (%d items, version %s)\n", fr.Path, fr.Items, shortVersion(fr.Version))
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", fr.Path)
		if len(fr.Issues) == 0 {
			fmt.Fprintf(w, "  %s: %s\n", fr.Error.Code, fr.Error.Message)
			continue
		}
		for _, is := range fr.Issues {
			fmt.Fprintf(w, "  %s\n", is)
		}
	}
}

// shortVersion abbreviates a definition version for text output.
func shortVersion(v string) string {
	if len(v) > 12 {
		return v[:12]
	}
	return v
}

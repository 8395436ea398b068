package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/gauge/internal/engine"
	"github.com/roach88/gauge/internal/product"
)

// NewProductCommand creates the product command group.
func NewProductCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "product",
		Short: "Register and inspect product definitions",
	}
	cmd.AddCommand(newProductPutCommand(rootOpts))
	cmd.AddCommand(newProductShowCommand(rootOpts))
	cmd.AddCommand(newProductVersionsCommand(rootOpts))
	return cmd
}

func newProductPutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "put <product-id> <product-file>",
		Short: "Validate a product definition and register it",
		Long: `Validate a product definition and make it the current definition of the
product. Records created before keep the definition version they were
created with.

Example:
  gauge product put bracket ./bracket.yaml
  gauge --db ./line1.db product put bracket ./bracket.cue --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProductPut(rootOpts, args[0], args[1], cmd)
		},
	}
}

func runProductPut(opts *RootOptions, id, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	doc, err := product.LoadFile(path)
	if err != nil {
		return formatter.Fail(err)
	}
	doc.ID = id
	formatter.VerboseLog("Loaded %d measurement point(s) from %s", len(doc.MeasurementPoints), path)

	eng, closeFn, err := openEngine(opts, cmd)
	if err != nil {
		return formatter.Fail(err)
	}
	defer closeFn()

	view, err := eng.PutProduct(cmd.Context(), doc)
	if err != nil {
		return formatter.Fail(err)
	}
	return formatter.Result(view, func(w io.Writer) {
		state := "unchanged"
		if view.NewVersion {
			state = "new version"
		}
		fmt.Fprintf(w, "✓ Product %s registered (%s %s, %d items)\n",
			view.ID, state, shortVersion(view.Version), len(view.MeasurementPoints))
	})
}

func newProductShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show <product-id>",
		Short:         "Show the current definition of a product",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			eng, closeFn, err := openEngine(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer closeFn()

			view, err := eng.ShowProduct(cmd.Context(), args[0])
			if err != nil {
				return formatter.Fail(err)
			}
			return formatter.Result(view, func(w io.Writer) { writeProduct(w, view) })
		},
	}
}

func newProductVersionsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "versions <product-id>",
		Short:         "List the definition versions of a product",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			eng, closeFn, err := openEngine(rootOpts, cmd)
			if err != nil {
				return formatter.Fail(err)
			}
			defer closeFn()

			versions, err := eng.ProductVersions(cmd.Context(), args[0])
			if err != nil {
				return formatter.Fail(err)
			}
			return formatter.Result(versions, func(w io.Writer) {
				for _, v := range versions {
					fmt.Fprintln(w, v)
				}
			})
		},
	}
}

func writeProduct(w io.Writer, view *engine.ProductView) {
	name := view.Name
	if name == "" {
		name = view.ID
	}
	fmt.Fprintf(w, "%s (%s)\n", name, view.ID)
	fmt.Fprintf(w, "version: %s\n", view.Version)
	fmt.Fprintf(w, "updated: %s\n", view.UpdatedAt.Format("2006-01-02 15:04:05"))
	for i, p := range view.MeasurementPoints {
		fmt.Fprintf(w, "%3d. %-24s %-11s %-6s samples=%d\n",
			i+1, p.Setup.NameID, p.EvaluationType, p.Setup.Source, p.Setup.SampleAmount)
	}
}

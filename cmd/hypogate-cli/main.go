package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"hypogate/domain/experiment"
	"hypogate/internal"
	"hypogate/internal/classifier"
	"hypogate/internal/config"
	"hypogate/internal/container"
	"hypogate/internal/empirical"
	"hypogate/internal/errors"
	"hypogate/internal/orchestrator"
	"hypogate/internal/report"
	"hypogate/internal/scoring"
	"hypogate/internal/validator"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if code := errors.GetCode(err); code != "" {
			fmt.Fprintln(os.Stderr, "code:", code)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hypogate-cli",
		Short:         "Offline domain classification and gate validation for experiment records",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		newClassifyCmd(),
		newValidateCmd(),
		newDomainsCmd(),
	)
	return rootCmd
}

func newClassifyCmd() *cobra.Command {
	var override string
	var floor float64

	cmd := &cobra.Command{
		Use:   "classify [hypothesis text...]",
		Short: "Classify hypothesis text into a validation domain",
		Long: `Score hypothesis text against every domain keyword table and print the
winning domain with its confidence. Below the confidence floor the domain is generic.

Example: hypogate-cli classify "Sulfuric acid concentration controls droplet growth"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := classifier.New(floor).Classify(strings.Join(args, " "), override)
			if err != nil {
				return err
			}
			return printClassification(cmd.OutOrStdout(), res)
		},
	}
	cmd.Flags().StringVar(&override, "domain", "", "Explicit domain override")
	cmd.Flags().Float64Var(&floor, "floor", 0, "Confidence floor (0 selects the default)")
	return cmd
}

func printClassification(w io.Writer, res classifier.Classification) error {
	fmt.Fprintf(w, "domain: %s (confidence %.2f", res.Domain, res.Confidence)
	if res.Overridden {
		fmt.Fprint(w, ", overridden")
	}
	fmt.Fprintln(w, ")")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, d := range experiment.AllDomains() {
		if s, ok := res.Scores[d]; ok {
			fmt.Fprintf(tw, "  %s\t%.3f\n", d, s)
		}
	}
	return tw.Flush()
}

func newValidateCmd() *cobra.Command {
	var catalog string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate [record.yaml|record.json]",
		Short: "Run an experiment record through every gate offline",
		Long: `Validate an experiment record against the dataset catalog and run the full
phase sequence with the offline generator and an in-memory store. Strictness flags and
thresholds are read from the environment exactly as the service does.

Example: DATASET_CATALOG=datasets.yaml hypogate-cli validate experiment.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), cmd.OutOrStdout(), args[0], catalog, asJSON)
		},
	}
	cmd.Flags().StringVar(&catalog, "catalog", "", "Dataset catalog (overrides DATASET_CATALOG)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the outcome as JSON")
	return cmd
}

func runValidate(ctx context.Context, w io.Writer, path, catalog string, asJSON bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rec, err := config.LoadRecordFile(path)
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	cfg.Database = config.DatabaseConfig{Driver: config.DriverMemory}
	cfg.LLM.BaseURL = ""
	if catalog != "" {
		cfg.Data.CatalogPath = catalog
	}

	c, err := container.New(cfg, internal.NewLogger(internal.ParseLogLevel(cfg.LogLevel)))
	if err != nil {
		return err
	}
	if err := c.Init(ctx); err != nil {
		return err
	}
	defer c.Close(0)

	exp, err := c.Orchestrator.Submit(ctx, rec)
	if err != nil {
		return err
	}
	out, err := c.Orchestrator.Run(ctx, exp.ID)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	return printOutcome(w, out)
}

func printOutcome(w io.Writer, out *orchestrator.Outcome) error {
	renderer := report.NewRenderer()
	fmt.Fprintf(w, "experiment %s: %s (domain %s)\n\n", out.Experiment.ID, out.Status(), out.Experiment.Domain)
	for _, res := range out.Results {
		md, err := renderer.Validation(report.NewValidationReport(res))
		if err != nil {
			return err
		}
		fmt.Fprintln(w, md)
	}
	if out.Failure != nil {
		md, err := renderer.Failure(out.Failure)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, md)
		return errors.Newf(out.Failure.Code, "experiment failed in %s", out.Failure.Phase)
	}
	return nil
}

func newDomainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List validation domains and their parameter ranges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := validator.NewRegistry(empirical.NewAnalyzer(), scoring.NewScorer())
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, d := range registry.Domains() {
				v, err := registry.Get(d)
				if err != nil {
					return err
				}
				floor := "engine"
				if f, ok := v.DefaultSNRFloorDB(); ok {
					floor = fmt.Sprintf("%g dB", f)
				}
				fmt.Fprintf(tw, "%s\tdefault variable: %s, trap floor: %s\n", d, v.DefaultVariable(), floor)
				for _, r := range v.Ranges() {
					fmt.Fprintf(tw, "  %s\t[%g, %g] %s\n", r.Parameter, r.Min, r.Max, r.Unit)
				}
			}
			return tw.Flush()
		},
	}
}

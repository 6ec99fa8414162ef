package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	domain "gopower/domain/power"
	"gopower/internal/boundary"
	"gopower/internal/config"
	"gopower/internal/export"
	"gopower/internal/power"
)

type cli struct {
	boundary *boundary.Boundary
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	rootCmd := &cobra.Command{
		Use:          "power",
		Short:        "Statistical power analysis for F, t, chi-square and z tests",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.init()
		},
	}

	rootCmd.AddCommand(
		c.newAnalyzeCmd(),
		c.newCurveCmd(),
		c.newTestsCmd(),
		c.newComputeCmd(),
	)
	return rootCmd
}

// init builds the analyzer from the environment once per process
func (c *cli) init() error {
	if c.boundary != nil {
		return nil
	}
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	c.boundary = boundary.New(power.NewAnalyzer(cfg.EngineOptions()))
	return nil
}

// requestFlags are the flags shared by analyze and curve
type requestFlags struct {
	test   string
	target string
	tail   int
	n      float64
	alpha  float64
	power  float64
	es     float64
	params map[string]string
}

func (f *requestFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.test, "test", "", "Test name (see 'power tests')")
	cmd.Flags().StringVar(&f.target, "target", "power", "Quantity to solve for: n|alpha|power|es")
	cmd.Flags().IntVar(&f.tail, "tail", 2, "Tails for t and z tests: 1|2")
	cmd.Flags().Float64Var(&f.n, "n", 0, "Total sample size")
	cmd.Flags().Float64Var(&f.alpha, "alpha", 0.05, "Significance level")
	cmd.Flags().Float64Var(&f.power, "power", 0.8, "Desired power (1-beta)")
	cmd.Flags().Float64Var(&f.es, "es", 0, "Effect size (d, f, f2 or w depending on the test)")
	cmd.Flags().StringToStringVar(&f.params, "param", nil, "Structural parameters, e.g. --param k=3,p=1")
	_ = cmd.MarkFlagRequired("test")
}

// body renders the flags as a boundary request. Quantities the user did not
// set are left out so the analyzer reports them as missing.
func (f *requestFlags) body(cmd *cobra.Command) map[string]any {
	out := map[string]any{
		"test":     f.test,
		"analysis": f.target,
		"tail":     f.tail,
	}
	quantities := map[string]float64{"n": f.n, "alpha": f.alpha, "power": f.power, "es": f.es}
	for name, v := range quantities {
		flag := cmd.Flags().Lookup(name)
		if flag.Changed || name == "alpha" || name == "power" {
			out[name] = v
		}
	}
	for k, v := range f.params {
		out[k] = v
	}
	return out
}

func (c *cli) newAnalyzeCmd() *cobra.Command {
	var flags requestFlags

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Solve for one of sample size, alpha, power or effect size",
		Long: `Solve for the quantity named by --target given the other three.

Example: power analyze --test ANCOVA --target n --alpha 0.05 --power 0.95 --es 0.25 --param k=3,p=1,q=2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := json.Marshal(flags.body(cmd))
			if err != nil {
				return err
			}
			return writeEnvelope(cmd.OutOrStdout(), c.boundary.Compute(body))
		},
	}
	flags.register(cmd)
	return cmd
}

func (c *cli) newCurveCmd() *cobra.Command {
	var flags requestFlags
	var axis string
	var from, to float64
	var points int
	var xlsxPath string
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Sample the target quantity across a range of another",
		Long: `Sample the --target quantity while --axis varies from --from to --to.

Example: power curve --test oneWayANOVA --target power --axis n --from 20 --to 300 --points 15 --es 0.25 --param k=3 --xlsx curve.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := flags.body(cmd)
			req["axis"] = axis
			req["from"] = from
			req["to"] = to
			req["points"] = points
			body, err := json.Marshal(req)
			if err != nil {
				return err
			}

			curve, err := c.boundary.Curve(cmd.Context(), body)
			if err != nil {
				return writeEnvelope(cmd.OutOrStdout(), boundary.EncodeError(err))
			}
			switch {
			case xlsxPath != "":
				if err := export.SaveXLSX(xlsxPath, curve); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d points to %s\n", len(curve.Points), xlsxPath)
				return nil
			case asCSV:
				return export.WriteCSV(cmd.OutOrStdout(), curve)
			default:
				return writeEnvelope(cmd.OutOrStdout(), boundary.Encode(curve))
			}
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&axis, "axis", "n", "Quantity varied along the curve: n|alpha|power|es")
	cmd.Flags().Float64Var(&from, "from", 0, "First axis value")
	cmd.Flags().Float64Var(&to, "to", 0, "Last axis value")
	cmd.Flags().IntVar(&points, "points", 10, "Number of points")
	cmd.Flags().StringVar(&xlsxPath, "xlsx", "", "Write an XLSX workbook with a chart to this path")
	cmd.Flags().BoolVar(&asCSV, "csv", false, "Write CSV to stdout")
	return cmd
}

func (c *cli) newTestsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tests",
		Short: "List the supported tests and their structural parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeEnvelope(cmd.OutOrStdout(), boundary.Encode(domain.Designs()))
		},
	}
}

func (c *cli) newComputeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compute",
		Short: "Read a JSON request from stdin and write the JSON response",
		Long: `Read one analysis request as JSON from stdin and write the response envelope.

Example: echo '{"test":"oneSampleTTest","analysis":"n","tail":2,"alpha":0.05,"power":0.95,"es":0.5}' | power compute`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read request: %w", err)
			}
			return writeEnvelope(cmd.OutOrStdout(), c.boundary.Compute(body))
		},
	}
}

// writeEnvelope prints the envelope and turns a failed one into an error so
// the process exits non-zero
func writeEnvelope(w io.Writer, envelope []byte) error {
	if _, err := fmt.Fprintln(w, string(envelope)); err != nil {
		return err
	}
	if !gjson.GetBytes(envelope, "ok").Bool() {
		return fmt.Errorf("%s: %s",
			gjson.GetBytes(envelope, "error.code").String(),
			gjson.GetBytes(envelope, "error.message").String())
	}
	return nil
}

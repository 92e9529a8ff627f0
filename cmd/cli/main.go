package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gopfa/adapters/rng"
	"gopfa/adapters/scoring"
	"gopfa/app"
	"gopfa/domain/model"
	"gopfa/domain/pfa"
	"gopfa/internal"
	"gopfa/internal/assemble"
	"gopfa/internal/codec"
	"gopfa/internal/config"
	"gopfa/internal/produce"
)

func main() {
	// Absent .env falls back to the system environment.
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "gopfa",
		Short: "Compile fitted statistical models into portable scoring documents",
	}

	rootCmd.AddCommand(
		newCompileCmd(),
		newInspectCmd(),
		newValidateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type compileFlags struct {
	predType string
	cutoffs  map[string]string
	lambda   string
	name     string
	version  int
	doc      string
	out      string
}

func (f *compileFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.predType, "pred-type", "response", "Prediction type: response, link, probability, class")
	cmd.Flags().StringToStringVar(&f.cutoffs, "cutoffs", nil, "Per-class decision cutoffs, e.g. yes=0.3,no=0.7")
	cmd.Flags().StringVar(&f.lambda, "lambda", "best", "Elastic-net regularization strength, or 'best'")
	cmd.Flags().StringVar(&f.name, "name", "", "Document name (generated when empty)")
	cmd.Flags().IntVar(&f.version, "version", 0, "Document version")
	cmd.Flags().StringVar(&f.doc, "doc-string", "", "Human-readable document description")
}

func (f *compileFlags) options() (app.CompileOptions, error) {
	opts := app.CompileOptions{
		PredType: produce.PredType(f.predType),
		Name:     f.name,
		Version:  f.version,
		Doc:      f.doc,
	}
	if len(f.cutoffs) > 0 {
		cutoffs := make(map[string]float64, len(f.cutoffs))
		for class, raw := range f.cutoffs {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return opts, fmt.Errorf("invalid cutoff for class %q: %w", class, err)
			}
			cutoffs[class] = v
		}
		opts.Cutoffs = cutoffs
	}
	switch strings.TrimSpace(f.lambda) {
	case "", "best":
		opts.Lambda = app.LambdaBest
	default:
		v, err := strconv.ParseFloat(f.lambda, 64)
		if err != nil {
			return opts, fmt.Errorf("invalid lambda: %w", err)
		}
		opts.Lambda = v
	}
	return opts, nil
}

func newCompileCmd() *cobra.Command {
	flags := &compileFlags{}

	cmd := &cobra.Command{
		Use:   "compile [model-file]",
		Short: "Compile a fitted model into a scoring document",
		Long: `Compile a fitted model description into a portable scoring document.

The model file is JSON with a "kind" (linear, glm, glmnet, gbm, forest)
and a "state" object holding the fitted parameters. Use "-" to read the
model from stdin.

Example: gopfa compile model.json --pred-type class --cutoffs yes=0.3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := flags.options()
			if err != nil {
				return err
			}
			fitted, err := readFittedModel(args[0])
			if err != nil {
				return err
			}

			svc := app.NewCompileService(internal.NewDefaultLogger())
			text, err := svc.CompileToText(fitted, opts)
			if err != nil {
				return err
			}
			if flags.out == "" {
				fmt.Println(text)
				return nil
			}
			return os.WriteFile(flags.out, []byte(text+"\n"), 0o644)
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&flags.out, "out", "", "Write the document to this file instead of stdout")

	return cmd
}

func newInspectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [document-source]",
		Short: "Check a scoring document and print its shape",
		Long: `Load a scoring document from literal JSON, a file path, or an
http(s) URL, verify its internal consistency, and print a summary.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			doc, err := codec.FromText(cmd.Context(), args[0], cfg.Fetch.Timeout)
			if err != nil {
				return err
			}
			if err := assemble.Check(doc); err != nil {
				return err
			}

			fmt.Printf("name:     %s\n", doc.Name)
			fmt.Printf("method:   %s\n", doc.Method)
			fmt.Printf("input:    %s\n", doc.Input.TypeName())
			fmt.Printf("output:   %s\n", doc.Output.TypeName())
			fmt.Printf("cells:    %s\n", stateNames(cellNames(doc.Cells)))
			fmt.Printf("pools:    %s\n", stateNames(poolNames(doc.Pools)))
			fmt.Printf("action:   %d expression(s)\n", len(doc.Action))
			for k, v := range doc.Metadata {
				fmt.Printf("meta.%s: %s\n", k, v)
			}
			return nil
		},
	}
	return cmd
}

func newValidateCmd() *cobra.Command {
	flags := &compileFlags{}
	var seed int64

	cmd := &cobra.Command{
		Use:   "validate [model-file]",
		Short: "Compile a model and validate the document on a scoring engine",
		Long: `Compile a fitted model and score sampled inputs both natively and on
the external scoring engine configured through PFA_ENGINE_URL, reporting
any deviation beyond the configured tolerance.

Example: gopfa validate model.json --pred-type class --seed 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts, err := flags.options()
			if err != nil {
				return err
			}
			fitted, err := readFittedModel(args[0])
			if err != nil {
				return err
			}

			logger := internal.NewDefaultLogger()
			engine, err := scoring.NewClient(cfg.Engine.URL, cfg.Engine.Timeout)
			if err != nil {
				return err
			}

			result, err := app.NewCompileService(logger).Compile(fitted, opts)
			if err != nil {
				return err
			}
			validate := app.NewValidateService(engine, rng.New(), logger, cfg.Validation)
			report, err := validate.ValidateSampled(cmd.Context(), result.Document, result.Params, produce.Options{
				PredType: opts.PredType,
				Cutoffs:  opts.Cutoffs,
			}, seed)
			if report != nil {
				fmt.Printf("samples:        %d\n", report.Samples)
				fmt.Printf("mismatches:     %d\n", report.Mismatches)
				fmt.Printf("max deviation:  %.3g\n", report.MaxDeviation)
				fmt.Printf("mean deviation: %.3g\n", report.MeanDeviation)
			}
			return err
		},
	}

	flags.register(cmd)
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic input sampling")

	return cmd
}

func readFittedModel(path string) (model.FittedModel, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = readAllStdin()
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return model.FittedModel{}, fmt.Errorf("read model: %w", err)
	}

	var decoded struct {
		Kind  string         `json:"kind"`
		State map[string]any `json:"state"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return model.FittedModel{}, fmt.Errorf("decode model: %w", err)
	}
	return model.FittedModel{Kind: model.Kind(decoded.Kind), State: decoded.State}, nil
}

func readAllStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}

func stateNames(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return fmt.Sprintf("%d (%s)", len(names), strings.Join(names, ", "))
}

func cellNames(cells map[string]pfa.Cell) []string {
	names := make([]string, 0, len(cells))
	for name := range cells {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func poolNames(pools map[string]pfa.Pool) []string {
	names := make([]string, 0, len(pools))
	for name := range pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"FinCast/internal/di"
	"FinCast/internal/domain/models"
	"FinCast/internal/handler/api"
	"FinCast/internal/usecase"
	"FinCast/pkg/config"
)

type cliOptions struct {
	configPath string
	input      string
	pretty     bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           "fincast",
		Short:         "Forecast monthly income and expenses from the last year of history",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "config/config.yaml", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the ledger consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	forecastCmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast 12 months from a JSON request read from a file or stdin",
		Example: `  echo '{"income":[...12 values...],"expenses":[...12 values...]}' | fincast forecast
  fincast forecast --input history.json --pretty`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runForecast(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	forecastCmd.Flags().StringVarP(&opts.input, "input", "i", "-", "request file, - for stdin")
	forecastCmd.Flags().BoolVar(&opts.pretty, "pretty", false, "indent JSON output")

	modelCmd := &cobra.Command{
		Use:   "model",
		Short: "Print the loaded models and forecasting setup",
		RunE: func(cmd *cobra.Command, _ []string) error {
			uc, cleanup, err := offline(opts)
			if err != nil {
				return err
			}
			defer cleanup()
			return writeJSON(cmd.OutOrStdout(), uc.ModelInfo(), true)
		},
	}

	root.AddCommand(serveCmd, forecastCmd, modelCmd)
	return root
}

func runServe(ctx context.Context, opts *cliOptions) error {
	cfg, err := config.LoadWithEnv(opts.configPath)
	if err != nil {
		return err
	}
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer cleanup()
	return app.Run(ctx)
}

func runForecast(ctx context.Context, opts *cliOptions, stdin io.Reader, out io.Writer) error {
	in := stdin
	if opts.input != "" && opts.input != "-" {
		f, err := os.Open(opts.input)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}

	var req models.ForecastRequest
	dec := json.NewDecoder(in)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}

	uc, cleanup, err := offline(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := uc.ForecastWindows(ctx, usecase.ForecastWindowsParams{
		Income:     req.Income,
		Expenses:   req.Expenses,
		Order:      req.Order,
		LastPeriod: req.LastPeriod,
	})
	if err != nil {
		return err
	}
	return writeJSON(out, api.NewForecastResponse(res), opts.pretty)
}

func offline(opts *cliOptions) (*usecase.ForecastUseCase, func(), error) {
	cfg, err := config.LoadWithEnv(opts.configPath)
	if err != nil {
		return nil, nil, err
	}
	uc, cleanup, err := di.InitializeOffline(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("initialize: %w", err)
	}
	return uc, cleanup, nil
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

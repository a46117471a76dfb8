package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/idcheck/internal/batch"
	"github.com/MeKo-Tech/idcheck/internal/config"
	"github.com/spf13/cobra"
)

// batchCmd verifies many documents in parallel.
var batchCmd = &cobra.Command{
	Use:   "batch <manifest.yaml | files...>",
	Short: "Verify many documents in parallel",
	Long: `Verify many documents in parallel.

With a single YAML or JSON manifest argument, every case in the manifest is
verified against its own profile. Otherwise the arguments are document files
or directories, and each document is read without a profile, which reports
what the MRZ contains.

Manifest example:
  cases:
    - id: alice
      front: alice_front.jpg
      back: alice_back.jpg
      surname: DUPONT
      given_name: MARIE
      date_of_birth: "1990-01-01"

Examples:
  idcheck batch cases.yaml --workers 4
  idcheck batch scans/ --recursive --format csv --output results.csv`,
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

// configToBatchConfig maps centralized configuration to batch.Config with
// flag overrides.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) batch.Config {
	bc := batch.Config{MaxImageWidth: cfg.Preprocess.MaxWidth}

	bc.Workers = cfg.Batch.Workers
	if cmd.Flags().Changed("workers") {
		bc.Workers, _ = cmd.Flags().GetInt("workers")
	}

	bc.ContinueOnError = cfg.Batch.ContinueOnError
	if cmd.Flags().Changed("continue-on-error") {
		bc.ContinueOnError, _ = cmd.Flags().GetBool("continue-on-error")
	}

	bc.Format = cfg.Output.Format
	if cmd.Flags().Changed("format") {
		bc.Format, _ = cmd.Flags().GetString("format")
	}

	bc.OutputFile, _ = cmd.Flags().GetString("output")
	bc.Quiet, _ = cmd.Flags().GetBool("quiet")
	return bc
}

func isManifest(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

func loadCases(cmd *cobra.Command, args []string) ([]batch.Case, error) {
	if len(args) == 1 && isManifest(args[0]) {
		m, err := batch.LoadManifest(args[0])
		if err != nil {
			return nil, err
		}
		return m.Cases, nil
	}
	recursive, _ := cmd.Flags().GetBool("recursive")
	include, _ := cmd.Flags().GetStringSlice("include")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")
	return batch.CasesFromPaths(args, recursive, include, exclude)
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	bc := configToBatchConfig(cfg, cmd)

	cases, err := loadCases(cmd, args)
	if err != nil {
		return err
	}

	v, err := cfg.NewVerifier(slog.Default())
	if err != nil {
		return err
	}

	if !bc.Quiet {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Verifying %d documents...\n", len(cases))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := batch.NewRunner(v, bc, slog.Default()).Run(ctx, cases)
	if err != nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}

	if err := result.SaveResults(cmd.OutOrStdout(), bc.Format, bc.OutputFile, bc.Quiet); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	result.PrintStats(cmd.ErrOrStderr(), bc.Quiet)
	return nil
}

func init() {
	rootCmd.AddCommand(batchCmd)
	addBatchFlags(batchCmd)
}

func addBatchFlags(c *cobra.Command) {
	c.Flags().StringP("format", "f", "text", "output format: text, json, csv")
	c.Flags().StringP("output", "o", "", "output file (default: stdout)")

	c.Flags().IntP("workers", "w", 0, fmt.Sprintf("number of parallel workers (default: %d)", runtime.NumCPU()))
	c.Flags().Bool("continue-on-error", false, "record failing cases instead of stopping the run")

	c.Flags().BoolP("recursive", "r", false, "recursively scan directories")
	c.Flags().StringSlice("include", []string{}, "file patterns to include")
	c.Flags().StringSlice("exclude", []string{}, "file patterns to exclude")

	c.Flags().Bool("quiet", false, "suppress progress output")
}

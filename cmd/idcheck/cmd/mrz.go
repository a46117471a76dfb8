package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/idcheck/internal/mrz"
	"github.com/spf13/cobra"
)

var errNoMRZ = errors.New("no MRZ found")

var mrzCmd = &cobra.Command{
	Use:   "mrz [file|-]",
	Short: "Parse MRZ text",
	Long: `Parse machine readable zone text that was already recognized.

The text is read from the given file, or from standard input when the
argument is "-" or missing. Lines that do not look like MRZ lines are
ignored, so raw OCR output can be passed as is.

Examples:
  idcheck mrz mrz.txt
  tesseract card.png - | idcheck mrz --format json`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		var (
			data []byte
			err  error
		)
		if len(args) == 0 || args[0] == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to read MRZ text: %w", err)
		}

		opts := cfg.ToParserOptions(slog.Default())
		if cmd.Flags().Changed("countries") {
			opts.Countries, _ = cmd.Flags().GetStringSlice("countries")
		}
		rec, found := mrz.NewParser(opts).ParseText(string(data))
		if !found {
			return errNoMRZ
		}

		format := cfg.Output.Format
		if cmd.Flags().Changed("format") {
			format, _ = cmd.Flags().GetString("format")
		}
		return writeRecord(cmd.OutOrStdout(), rec, format)
	},
}

func writeRecord(w io.Writer, rec *mrz.Record, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode record: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	case "", "text":
		out := formatRecord(rec)
		if rec.CheckDigits != nil {
			out += fmt.Sprintf("  check digits:  number=%t birth=%t expiry=%t\n",
				rec.CheckDigits.DocumentNumber, rec.CheckDigits.DateOfBirth, rec.CheckDigits.DateOfExpiry)
		}
		_, err := io.WriteString(w, out)
		return err
	default:
		return fmt.Errorf("unsupported format: %s (must be text or json)", format)
	}
}

func init() {
	rootCmd.AddCommand(mrzCmd)
	mrzCmd.Flags().StringP("format", "f", "text", "output format (text, json)")
	mrzCmd.Flags().StringSlice("countries", nil, "accepted issuing countries (empty config accepts any)")
}

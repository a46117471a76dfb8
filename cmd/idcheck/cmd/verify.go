package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/idcheck/internal/acquire"
	"github.com/MeKo-Tech/idcheck/internal/mrz"
	"github.com/MeKo-Tech/idcheck/internal/verify"
	"github.com/spf13/cobra"
)

// errNotVerified makes the command exit non-zero without printing usage.
var errNotVerified = errors.New("document not verified")

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify an identity document against a profile",
	Long: `Read the MRZ of a document image and compare it with the given identity.

The front and back images may be JPEG, PNG, BMP, TIFF, WebP or PDF files.
At least one of them is required.

Examples:
  idcheck verify --front card.jpg --surname DUPONT --given-name MARIE --dob 1990-01-01
  idcheck verify --front recto.png --back verso.png --surname NGONO --type cni --format json`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()
		front, _ := cmd.Flags().GetString("front")
		back, _ := cmd.Flags().GetString("back")
		if front == "" && back == "" {
			return errors.New("at least one of --front or --back is required")
		}

		surname, _ := cmd.Flags().GetString("surname")
		givenName, _ := cmd.Flags().GetString("given-name")
		dob, _ := cmd.Flags().GetString("dob")
		profile, err := verify.NewProfile(surname, givenName, dob)
		if err != nil {
			return err
		}

		req := verify.Request{Profile: profile}
		if t, _ := cmd.Flags().GetString("type"); t != "" {
			dt, ok := mrz.ParseDocumentType(t)
			if !ok {
				return fmt.Errorf("unknown document type: %s", t)
			}
			req.DocumentType = dt
		}

		format := cfg.Output.Format
		if cmd.Flags().Changed("format") {
			format, _ = cmd.Flags().GetString("format")
		}
		if format != "" && format != "text" && format != "json" {
			return fmt.Errorf("unsupported format: %s (must be text or json)", format)
		}

		loader := acquire.NewLoader(cfg.Preprocess.MaxWidth)
		for _, doc := range []struct{ side, path string }{{verify.SideFront, front}, {verify.SideBack, back}} {
			if doc.path == "" {
				continue
			}
			if err := loadSide(loader, &req, doc.side, doc.path); err != nil {
				return err
			}
		}

		v, err := cfg.NewVerifier(slog.Default())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		verdict, err := v.Verify(ctx, req)
		if err != nil {
			return err
		}
		if err := writeVerdict(cmd.OutOrStdout(), verdict, format); err != nil {
			return err
		}
		if failOnReject, _ := cmd.Flags().GetBool("fail-on-reject"); failOnReject && !verdict.Verified {
			return errNotVerified
		}
		return nil
	},
}

func writeVerdict(w io.Writer, verdict *verify.Verdict, format string) error {
	if format == "json" {
		data, err := json.MarshalIndent(verdict, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode verdict: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", verdict.Status, verdict.Message)
	fmt.Fprintf(&b, "  surname:       %s\n", matchMark(verdict.NameMatch))
	fmt.Fprintf(&b, "  given name:    %s\n", matchMark(verdict.GivenNameMatch))
	fmt.Fprintf(&b, "  date of birth: %s\n", matchMark(verdict.DOBMatch))
	if verdict.Record != nil {
		b.WriteString(formatRecord(verdict.Record))
	}
	if verdict.Source != "" {
		fmt.Fprintf(&b, "  source:        %s\n", verdict.Source)
	}
	fmt.Fprintf(&b, "  attempts:      %d\n", verdict.Attempts)
	_, err := io.WriteString(w, b.String())
	return err
}

func formatRecord(rec *mrz.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  format:        %s\n", rec.Format)
	fmt.Fprintf(&b, "  document:      %s %s %s\n", rec.DocumentType, rec.IssuingCountry, rec.DocumentNumber)
	fmt.Fprintf(&b, "  name:          %s, %s\n", rec.Surname, rec.GivenNames)
	fmt.Fprintf(&b, "  born:          %s\n", dateOrDash(rec.DateOfBirth))
	fmt.Fprintf(&b, "  expires:       %s\n", dateOrDash(rec.DateOfExpiry))
	if rec.Sex != mrz.SexUnknown {
		fmt.Fprintf(&b, "  sex:           %s\n", rec.Sex)
	}
	return b.String()
}

func matchMark(ok bool) string {
	if ok {
		return "match"
	}
	return "MISMATCH"
}

func dateOrDash(d *mrz.Date) string {
	if d == nil {
		return "-"
	}
	return d.String()
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().String("front", "", "front image or PDF of the document")
	verifyCmd.Flags().String("back", "", "back image or PDF of the document")
	verifyCmd.Flags().String("surname", "", "stored surname")
	verifyCmd.Flags().String("given-name", "", "stored given name")
	verifyCmd.Flags().String("dob", "", "stored date of birth (YYYY-MM-DD)")
	verifyCmd.Flags().String("type", "", "declared document type (cni, passport, residence_permit)")
	verifyCmd.Flags().StringP("format", "f", "text", "output format (text, json)")
	verifyCmd.Flags().Bool("fail-on-reject", false, "exit with a non-zero status unless the document is verified")
}

// loadSide reads the document at path into req. Files that cannot be read
// are an error; files that cannot be decoded leave the side unreadable.
func loadSide(loader *acquire.Loader, req *verify.Request, side, path string) error {
	img, err := loader.Load(path)
	if err != nil && !acquire.IsDecodeError(err) {
		return fmt.Errorf("load %s %s: %w", side, path, err)
	}
	if err != nil {
		slog.Warn("Document image not decodable", "side", side, "path", path, "error", err)
	}
	req.SetImage(side, img, err)
	return nil
}

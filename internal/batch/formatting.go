package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// formatBatchResults formats the batch processing results in the specified format.
func formatBatchResults(r *Result, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(r)
	case "csv":
		return formatCSV(r)
	default: // text
		return formatText(r), nil
	}
}

// formatJSON formats results as JSON.
func formatJSON(r *Result) (string, error) {
	bts, err := json.MarshalIndent(r, "", "  ")
	return string(bts), err
}

var csvHeader = []string{
	"id", "status", "message", "name_match", "given_name_match", "dob_match", "document_expired",
	"format", "document_type", "country", "document_number", "surname", "given_names",
	"date_of_birth", "date_of_expiry", "source", "attempts", "error",
}

// formatCSV formats results as CSV, one row per case.
func formatCSV(r *Result) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.Write(csvHeader); err != nil {
		return "", err
	}

	for _, res := range r.Results {
		row := make([]string, len(csvHeader))
		row[0] = res.Case.ID
		row[1] = res.Status()
		row[17] = res.Error
		if v := res.Verdict; v != nil {
			row[2] = v.Message
			row[3] = strconv.FormatBool(v.NameMatch)
			row[4] = strconv.FormatBool(v.GivenNameMatch)
			row[5] = strconv.FormatBool(v.DOBMatch)
			row[6] = strconv.FormatBool(v.DocumentExpired)
			row[15] = v.Source
			row[16] = strconv.Itoa(v.Attempts)
			if rec := v.Record; rec != nil {
				row[7] = string(rec.Format)
				row[8] = string(rec.DocumentType)
				row[9] = rec.IssuingCountry
				row[10] = rec.DocumentNumber
				row[11] = rec.Surname
				row[12] = rec.GivenNames
				if rec.DateOfBirth != nil {
					row[13] = rec.DateOfBirth.String()
				}
				if rec.DateOfExpiry != nil {
					row[14] = rec.DateOfExpiry.String()
				}
			}
		}
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

// formatText formats results as plain text.
func formatText(r *Result) string {
	var output strings.Builder
	for i, res := range r.Results {
		if i > 0 {
			output.WriteString("\n")
		}
		output.WriteString(fmt.Sprintf("# %s\n", res.Case.ID))
		if res.Verdict == nil {
			output.WriteString(fmt.Sprintf("ERROR: %s\n", res.Error))
			continue
		}
		v := res.Verdict
		output.WriteString(fmt.Sprintf("%s: %s\n", v.Status, v.Message))
		if rec := v.Record; rec != nil {
			output.WriteString(fmt.Sprintf("  %s %s %s/%s  %s, %s\n",
				rec.Format, rec.DocumentType, rec.IssuingCountry, rec.DocumentNumber, rec.Surname, rec.GivenNames))
		}
		output.WriteString(fmt.Sprintf("  source=%s attempts=%d\n", v.Source, v.Attempts))
	}
	return output.String()
}

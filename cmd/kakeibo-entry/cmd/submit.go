package cmd

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"kakeibo/internal/form"
)

// ErrNotAppended is returned when the server answers with a failure.
var ErrNotAppended = errors.New("entries were not appended")

func SubmitCmd(s *Settings) *cobra.Command {
	var rows []string
	c := &cobra.Command{
		Use:   "submit",
		Short: "Send rows given as date,store,amount,paymentMethod[,notes]",
		Example: `  kakeibo-entry submit --row "2024-05-01,スーパーA,1500,現金" \
    --row "2024-05-02,コンビニB,320,QRコード決済,昼食"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(rows) == 0 {
				return errors.New("at least one --row is required")
			}
			f := form.New(s.submitter(), form.WithLogger(s.Logger))
			return SubmitRows(cmd.Context(), f, rows, cmd.OutOrStdout())
		},
	}
	c.Flags().StringArrayVar(&rows, "row", nil, "one entry as CSV; repeatable")
	return c
}

// SubmitRows fills f with one row per CSV record and submits them.
func SubmitRows(ctx context.Context, f *form.Form, rows []string, out io.Writer) error {
	for i, raw := range rows {
		id := f.Entries()[0].ID
		if i > 0 {
			d, err := f.AddRow()
			if err != nil {
				return err
			}
			id = d.ID
		}
		values, err := parseRow(raw)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
		for j, field := range form.Fields {
			if j >= len(values) {
				break
			}
			if field == form.FieldDate && values[j] == "" {
				continue
			}
			if err := f.EditField(id, field, values[j]); err != nil {
				return fmt.Errorf("row %d: %s: %w", i+1, field, err)
			}
		}
	}

	outcome, err := f.Submit(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, outcome.Text())
	if outcome.Status != form.StatusSucceeded {
		return ErrNotAppended
	}
	return nil
}

// parseRow reads one CSV record. An empty date keeps today.
func parseRow(raw string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(raw))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	values, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", raw, err)
	}
	if len(values) < 4 || len(values) > len(form.Fields) {
		return nil, fmt.Errorf("want 4 or 5 values, got %d", len(values))
	}
	return values, nil
}

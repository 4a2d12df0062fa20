package bench

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"
)

const CSVDateLayout = "2006/01/02 15:04"

// Report writes every case as its comment, its frame information and its
// average timings.
func (s *Suite) Report(w io.Writer) error {
	for _, c := range s.Cases() {
		info, err := json.MarshalIndent(c.Info(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render frame information: %w", err)
		}
		averages, err := json.MarshalIndent(c.Averages(), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render averages: %w", err)
		}
		if _, err = fmt.Fprintf(w, "\n%s\n%s\n%s\n", c.Comment(), info, averages); err != nil {
			return err
		}
	}
	return nil
}

// ExportCSV appends one row per case to path, preceded by a header row.
func (s *Suite) ExportCSV(path string) error {
	cases := s.Cases()
	if len(cases) == 0 {
		return nil
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // output path is operator controlled
	if err != nil {
		return fmt.Errorf("failed to open csv file: %w", err)
	}

	if err = WriteCSV(f, cases, s.opts.Now()); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteCSV writes a header row followed by one row per case. Timing columns
// come first, then frame information columns, each in first-seen order.
// Comments render as (A, B) and the gzip column as true/false.
func WriteCSV(w io.Writer, cases []*Case, now time.Time) error {
	timingKeys, infoKeys := csvColumns(cases)

	cw := csv.NewWriter(w)
	header := append([]string{"Date", "Comment", "gzip"}, timingKeys...)
	header = append(header, infoKeys...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	date := now.Format(CSVDateLayout)
	for _, c := range cases {
		row := make([]string, 0, len(header))
		row = append(row, date, c.Comment().String(), strconv.FormatBool(c.Gzip()))
		for _, key := range timingKeys {
			value := ""
			if avg, ok := c.Averages().Get(key); ok {
				value = strconv.FormatFloat(avg, 'f', -1, 64)
			}
			row = append(row, value)
		}
		for _, key := range infoKeys {
			value, _ := c.Info().Get(key)
			row = append(row, value)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func csvColumns(cases []*Case) (timingKeys, infoKeys []string) {
	for _, c := range cases {
		for _, key := range c.Averages().Keys() {
			if !slices.Contains(timingKeys, key) {
				timingKeys = append(timingKeys, key)
			}
		}
		for _, key := range c.Info().Keys() {
			if !slices.Contains(infoKeys, key) {
				infoKeys = append(infoKeys, key)
			}
		}
	}
	return timingKeys, infoKeys
}

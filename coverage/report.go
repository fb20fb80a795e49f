// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package coverage

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// InfString is written in place of a ratio whose denominator is 0.
const InfString = "Inf"

// Ratio is a quotient that may be undefined because its denominator is 0.
type Ratio struct {
	Value float64
	Inf   bool
}

// NewRatio returns num/den, or an Inf ratio if den is exactly 0.
func NewRatio(num, den float64) Ratio {
	if den == 0 {
		return Ratio{Inf: true}
	}
	return Ratio{Value: num / den}
}

func (r Ratio) String() string {
	if r.Inf {
		return InfString
	}
	return formatFloat(r.Value)
}

// Row is one line of the report.
type Row struct {
	Scaffold  string
	Fragment  string
	Target    Stat
	Entire    Stat
	NonTarget Stat

	MeanRatio   Ratio
	MedianRatio Ratio
}

// NewRow assembles the report row for frag.
func NewRow(frag Fragment, target, entire, nonTarget Stat) Row {
	return Row{
		Scaffold:    frag.Scaffold,
		Fragment:    frag.ID,
		Target:      target,
		Entire:      entire,
		NonTarget:   nonTarget,
		MeanRatio:   NewRatio(target.Mean, nonTarget.Mean),
		MedianRatio: NewRatio(target.Median, nonTarget.Median),
	}
}

// ReportColumns are the report's header fields, in output order.
var ReportColumns = []string{
	"scaffold",
	"fragment",
	"prophage_mean_coverage",
	"prophage_median_coverage",
	"entire_scaffold_mean_coverage",
	"entire_scaffold_median_coverage",
	"non_prophage_mean_coverage",
	"non_prophage_median_coverage",
	"mean_coverage_ratio",
	"median_coverage_ratio",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Writer writes report rows as TSV.  Thread compatible.
type Writer struct {
	w             *tsv.Writer
	headerWritten bool
}

// NewWriter creates a Writer.  The header line is written before the first
// row, or by Flush if there are no rows.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: tsv.NewWriter(w)}
}

func (w *Writer) writeHeader() error {
	w.headerWritten = true
	w.w.WriteString(strings.Join(ReportColumns, "\t"))
	return w.w.EndLine()
}

// Write appends one row.
func (w *Writer) Write(row *Row) error {
	if !w.headerWritten {
		if err := w.writeHeader(); err != nil {
			return err
		}
	}
	w.w.WriteString(row.Scaffold)
	w.w.WriteString(row.Fragment)
	for _, s := range [...]Stat{row.Target, row.Entire, row.NonTarget} {
		w.w.WriteString(formatFloat(s.Mean))
		w.w.WriteString(formatFloat(s.Median))
	}
	w.w.WriteString(row.MeanRatio.String())
	w.w.WriteString(row.MedianRatio.String())
	return w.w.EndLine()
}

// Flush writes any buffered data.
func (w *Writer) Flush() error {
	if !w.headerWritten {
		if err := w.writeHeader(); err != nil {
			return err
		}
	}
	return w.w.Flush()
}

// WriteReport writes rows to path.  The report is published only if every
// write succeeds: file.Create stages the data, Close moves it into place, and
// on any error the staged data is discarded so that no partial report is left
// behind (an existing file at path is kept).  A ".gz" suffix selects gzip
// compression.
func WriteReport(ctx context.Context, path string, rows []Row) error {
	err := createReport(ctx, path, func(dst io.Writer) error {
		w := NewWriter(dst)
		for i := range rows {
			if err := w.Write(&rows[i]); err != nil {
				return err
			}
		}
		return w.Flush()
	})
	if err != nil {
		return err
	}
	log.Printf("coverage.WriteReport: %d row(s) written to %s", len(rows), path)
	return nil
}

// createReport stages the output of write at path and publishes it only if
// write and the final close both succeed.
func createReport(ctx context.Context, path string, write func(io.Writer) error) (err error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "coverage.WriteReport: create %s", path)
	}
	defer func() {
		if err != nil {
			out.Discard(ctx)
			return
		}
		if err = out.Close(ctx); err != nil {
			err = errors.Wrapf(err, "coverage.WriteReport: close %s", path)
		}
	}()

	dst := out.Writer(ctx)
	var gz *gzip.Writer
	if strings.HasSuffix(path, ".gz") {
		gz = gzip.NewWriter(dst)
		dst = gz
	}
	if err = write(dst); err != nil {
		return errors.Wrapf(err, "coverage.WriteReport: write %s", path)
	}
	if gz != nil {
		if err = gz.Close(); err != nil {
			return errors.Wrapf(err, "coverage.WriteReport: compress %s", path)
		}
	}
	return nil
}

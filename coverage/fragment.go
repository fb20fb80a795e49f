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
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/viralqc/prophagecov/interval"
)

// Fragment is a named candidate region on a scaffold.
type Fragment struct {
	Scaffold string
	ID       string
	interval.Interval
}

// RowError describes a fragment-table row that was skipped.
type RowError struct {
	// Row is the 1-based index of the data row, not counting the header or
	// comment lines.
	Row    int
	Reason string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// Required columns of the fragment table, in colIdx order.
var fragmentColumns = [...]string{"scaffold", "fragment", "start", "stop"}

const (
	colScaffold = iota
	colFragment
	colStart
	colStop
)

// ReadFragments reads a tab-separated fragment table with a header row naming
// (at least) the scaffold, fragment, start and stop columns, in any order.
// Coordinates are 1-based and inclusive.  The table may be compressed.
//
// A row with a missing or empty required field, or unusable coordinates, is
// skipped and reported in the returned RowError list; it doesn't stop the
// read.  A missing header column or an I/O failure is returned as an error.
func ReadFragments(ctx context.Context, path string) (frags []Fragment, skipped []RowError, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	if frags, skipped, err = parseFragments(r); err != nil {
		return nil, nil, errors.E(err, "coverage.ReadFragments:", path)
	}
	for _, rowErr := range skipped {
		log.Error.Printf("coverage.ReadFragments: %s: skipping %v", path, rowErr)
	}
	return frags, skipped, nil
}

func parseFragments(r io.Reader) (frags []Fragment, skipped []RowError, err error) {
	reader := tsv.NewReader(r)
	reader.Comment = '#'
	reader.LazyQuotes = true
	// Short rows are reported as missing fields, not as parse errors.
	reader.FieldsPerRecord = -1

	var (
		colIdx     [len(fragmentColumns)]int
		haveHeader bool
		rowIdx     int
	)
	for {
		fields, e := reader.Reader.Read()
		if e == io.EOF {
			break
		}
		if e != nil {
			return nil, nil, e
		}
		if !haveHeader {
			if colIdx, err = parseHeader(fields); err != nil {
				return nil, nil, err
			}
			haveHeader = true
			continue
		}
		rowIdx++
		frag, reason := parseFragment(fields, colIdx)
		if reason != "" {
			skipped = append(skipped, RowError{Row: rowIdx, Reason: reason})
			continue
		}
		frags = append(frags, frag)
	}
	if !haveHeader {
		return nil, nil, errors.E(errors.Invalid, "empty fragment table")
	}
	return frags, skipped, nil
}

// parseHeader maps each required column to its field index.  Names are
// matched case-insensitively.
func parseHeader(fields []string) (colIdx [len(fragmentColumns)]int, err error) {
	for i := range colIdx {
		colIdx[i] = -1
	}
	for i, name := range fields {
		name = strings.ToLower(strings.TrimSpace(name))
		for c, want := range fragmentColumns {
			if name == want && colIdx[c] == -1 {
				colIdx[c] = i
			}
		}
	}
	for c, idx := range colIdx {
		if idx == -1 {
			err = errors.E(errors.Invalid, fmt.Sprintf("fragment table header %q lacks column %q", strings.Join(fields, "\t"), fragmentColumns[c]))
			return
		}
	}
	return
}

// parseFragment converts one data row.  It returns a nonempty reason if the
// row must be skipped.
func parseFragment(fields []string, colIdx [len(fragmentColumns)]int) (frag Fragment, reason string) {
	var vals [len(fragmentColumns)]string
	for c, idx := range colIdx {
		if idx < len(fields) {
			vals[c] = strings.TrimSpace(fields[idx])
		}
		if vals[c] == "" {
			return frag, fmt.Sprintf("missing %s field", fragmentColumns[c])
		}
	}
	start, err := strconv.Atoi(vals[colStart])
	if err != nil {
		return frag, fmt.Sprintf("bad start %q", vals[colStart])
	}
	stop, err := strconv.Atoi(vals[colStop])
	if err != nil {
		return frag, fmt.Sprintf("bad stop %q", vals[colStop])
	}
	// Bounds are checked before narrowing to PosType.
	iv := interval.Interval{Start: interval.PosType(start), End: interval.PosType(stop)}
	if start < 1 || stop >= interval.PosTypeMax || !iv.Valid() {
		return frag, fmt.Sprintf("invalid coordinates %d-%d", start, stop)
	}
	frag = Fragment{
		Scaffold: vals[colScaffold],
		ID:       vals[colFragment],
		Interval: iv,
	}
	return frag, ""
}

// scaffoldFragments are the fragments of one scaffold, in table order.
type scaffoldFragments struct {
	scaffold  string
	fragments []Fragment
}

// groupByScaffold groups frags by scaffold, ordering the groups by first
// appearance in frags.
func groupByScaffold(frags []Fragment) []scaffoldFragments {
	var groups []scaffoldFragments
	idx := make(map[string]int)
	for _, frag := range frags {
		i, ok := idx[frag.Scaffold]
		if !ok {
			i = len(groups)
			idx[frag.Scaffold] = i
			groups = append(groups, scaffoldFragments{scaffold: frag.Scaffold})
		}
		groups[i].fragments = append(groups[i].fragments, frag)
	}
	return groups
}

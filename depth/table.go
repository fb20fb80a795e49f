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

package depth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/biogo/hts/fai"
	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
	"github.com/viralqc/prophagecov/interval"
)

// ScaffoldLength is one entry of the reference metadata.
type ScaffoldLength struct {
	Name   string
	Length PosType
}

// depthRow is one line of "samtools depth" output.
type depthRow struct {
	Scaffold string
	Pos      int64
	Depth    int64
}

// openTable opens a possibly-compressed text table for reading.
func openTable(ctx context.Context, path string) (file.File, io.Reader, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	return in, bufio.NewReaderSize(r, 64<<10), nil
}

// ReadFaiLengths reads scaffold lengths from a samtools faidx index
// (http://www.htslib.org/doc/faidx.html), in index order.  This doesn't
// require reading the FASTA itself.
func ReadFaiLengths(ctx context.Context, path string) (lengths []ScaffoldLength, err error) {
	in, r, err := openTable(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	idx, err := fai.ReadFrom(r)
	if err != nil {
		return nil, errors.E(errors.Invalid, err, "depth.ReadFaiLengths:", path)
	}
	if len(idx) == 0 {
		return nil, errors.E(errors.Invalid, "depth.ReadFaiLengths: empty index", path)
	}
	recs := make([]fai.Record, 0, len(idx))
	for _, rec := range idx {
		recs = append(recs, rec)
	}
	// The index is a map; FASTA offsets restore file order.
	sort.Slice(recs, func(i, j int) bool { return recs[i].Start < recs[j].Start })
	for _, rec := range recs {
		if rec.Length < 1 || int64(rec.Length) >= int64(interval.PosTypeMax) {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("depth.ReadFaiLengths: %s: invalid length %d for %s", path, rec.Length, rec.Name))
		}
		lengths = append(lengths, ScaffoldLength{Name: rec.Name, Length: PosType(rec.Length)})
	}
	return lengths, nil
}

// ReadDepthTable loads a tab-separated (scaffold, pos, depth) table, as
// written by "samtools depth", into a MemSource containing the given
// scaffolds.  Lines starting with '#' are ignored, and the table may be
// gzip/zstd-compressed.  Rows must be sorted by position within each
// scaffold; zero-depth rows (from "samtools depth -a") are accepted.
//
// A row naming a scaffold that is not in lengths, lying outside its scaffold,
// or carrying a negative depth, is an integrity error.  A table without any
// data rows is invalid; it almost always means the depth step upstream failed.
func ReadDepthTable(ctx context.Context, path string, lengths []ScaffoldLength) (m *MemSource, err error) {
	m = NewMemSource()
	for _, sl := range lengths {
		if err = m.AddScaffold(sl.Name, sl.Length); err != nil {
			return nil, err
		}
	}
	in, r, err := openTable(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)

	reader := tsv.NewReader(r)
	reader.Comment = '#'

	// Consecutive positions with equal depth are stored as one run.
	var (
		run      depthRow
		runStart int64
		lineIdx  int
		nRow     int
	)
	flush := func() error {
		if run.Scaffold == "" || run.Depth == 0 {
			return nil
		}
		return m.SetRange(run.Scaffold, PosType(runStart), PosType(run.Pos), int(run.Depth))
	}
	for {
		var row depthRow
		if e := reader.Read(&row); e != nil {
			if e == io.EOF {
				break
			}
			return nil, errors.E(e, fmt.Sprintf("depth.ReadDepthTable: %s line %d", path, lineIdx+1))
		}
		lineIdx++
		if row.Depth < 0 {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("depth.ReadDepthTable: %s line %d: negative depth %d", path, lineIdx, row.Depth))
		}
		length, e := m.ScaffoldLength(row.Scaffold)
		if e != nil {
			return nil, errors.E(errors.Integrity, e, fmt.Sprintf("depth.ReadDepthTable: %s line %d", path, lineIdx))
		}
		if row.Pos < 1 || row.Pos > int64(length) {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("depth.ReadDepthTable: %s line %d: position %d outside %s (length %d)", path, lineIdx, row.Pos, row.Scaffold, length))
		}
		nRow++
		if row.Scaffold == run.Scaffold && row.Pos == run.Pos+1 && row.Depth == run.Depth {
			run.Pos = row.Pos
			continue
		}
		if row.Scaffold == run.Scaffold && row.Pos <= run.Pos {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("depth.ReadDepthTable: %s line %d: unsorted input at %s:%d", path, lineIdx, row.Scaffold, row.Pos))
		}
		if err = flush(); err != nil {
			return nil, err
		}
		run = row
		runStart = row.Pos
	}
	if err = flush(); err != nil {
		return nil, err
	}
	if nRow == 0 {
		return nil, errors.E(errors.Invalid, "depth.ReadDepthTable: no depth rows in", path)
	}
	log.Printf("depth.ReadDepthTable: loaded %d row(s) over %d scaffold(s) from %s", nRow, len(lengths), path)
	return m, nil
}

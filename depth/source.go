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
	"context"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/viralqc/prophagecov/interval"
)

// PosType is the integer type used to represent scaffold positions.
type PosType = interval.PosType

// Record is the depth at one 1-based scaffold position.
type Record struct {
	Pos   PosType
	Depth int
}

// Source is a coordinate-queryable depth store.
type Source interface {
	// Depth returns the records for every covered position in [start, end],
	// in ascending position order.  Positions with zero depth are omitted, so
	// an empty result is a valid answer, not an error.  The range is clipped
	// to the scaffold.
	//
	// An unknown scaffold yields an error of kind errors.NotExist.
	Depth(ctx context.Context, scaffold string, start, end PosType) ([]Record, error)

	// ScaffoldLength returns the length of the named scaffold, or an error of
	// kind errors.NotExist if it is not in the reference metadata.
	ScaffoldLength(scaffold string) (PosType, error)

	// Close releases any resources held by the source.
	Close() error
}

// Opts defines how Open builds a Source.
type Opts struct {
	// Fai is the samtools faidx index supplying scaffold lengths for depth
	// tables.  Ignored for BAM input, where the header is used.
	Fai string
	// BAM holds the options for BAM input.
	BAM BAMOpts
}

// DefaultOpts are the default options for Open.
var DefaultOpts = Opts{BAM: DefaultBAMOpts}

// Open returns a BAMSource if path looks like a BAM file, and otherwise loads
// path as a depth table with lengths taken from opts.Fai.
func Open(ctx context.Context, path string, opts Opts) (Source, error) {
	if strings.HasSuffix(path, ".bam") {
		return NewBAMSource(path, opts.BAM)
	}
	if opts.Fai == "" {
		return nil, errors.E(errors.Invalid, "depth.Open: a .fai index is required to read depth table", path)
	}
	lengths, err := ReadFaiLengths(ctx, opts.Fai)
	if err != nil {
		return nil, err
	}
	return ReadDepthTable(ctx, path, lengths)
}

func unknownScaffold(scaffold string) error {
	return errors.E(errors.NotExist, "unknown scaffold", scaffold)
}

// clip restricts [start, end] to [1, length].  ok is false if nothing is left.
func clip(start, end, length PosType) (PosType, PosType, bool) {
	if start < 1 {
		start = 1
	}
	if end > length {
		end = length
	}
	return start, end, start <= end
}

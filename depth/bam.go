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
	"fmt"
	"io"
	"sync"

	"github.com/grailbio/base/errorreporter"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/bgzf/index"
	"github.com/grailbio/hts/sam"
	"v.io/x/lib/vlog"
)

// BAMOpts defines read filtering for BAMSource.
type BAMOpts struct {
	// Index is the pathname of the *.bam.bai file. If "", Path + ".bai".
	Index string
	// Mapq is the minimum mapping quality of a counted read.
	Mapq int
	// FlagExclude causes reads with any of these FLAG bits set to be skipped.
	FlagExclude int
}

// DefaultBAMOpts match the read filter of "samtools depth".
var DefaultBAMOpts = BAMOpts{
	FlagExclude: int(sam.Unmapped | sam.Secondary | sam.QCFail | sam.Duplicate),
}

// BAMSource implements Source for a coordinate-sorted BAM file with a BAI
// index.  Both may be S3 URLs if an s3 file implementation is registered.
// Depth at a position is the number of passing reads with an aligned base
// (CIGAR M, = or X) there; deletions and skips don't count.  Thread safe.
type BAMSource struct {
	// Path of the *.bam file. Must be nonempty.
	Path string
	Opts BAMOpts
	err  errorreporter.T

	header *sam.Header
	refs   map[string]*sam.Reference

	mu          sync.Mutex
	nActive     int
	freeReaders []*bamReader
}

// bamReader is one open handle on the BAM and its index.  Handles are reused
// across Depth calls.
type bamReader struct {
	in     file.File
	reader *bam.Reader
	index  *bam.Index
}

// NewBAMSource opens path and reads its header.
func NewBAMSource(path string, opts BAMOpts) (*BAMSource, error) {
	b := &BAMSource{Path: path, Opts: opts}
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(errors.Unavailable, err, "depth.NewBAMSource")
	}
	defer in.Close(ctx)
	bamReader, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return nil, errors.E(err, "depth.NewBAMSource: reading header of", path)
	}
	defer bamReader.Close()
	b.header = bamReader.Header()
	b.refs = make(map[string]*sam.Reference, len(b.header.Refs()))
	for _, ref := range b.header.Refs() {
		b.refs[ref.Name()] = ref
	}
	return b, nil
}

func (b *BAMSource) indexPath() string {
	if b.Opts.Index == "" {
		return b.Path + ".bai"
	}
	return b.Opts.Index
}

// ScaffoldLength implements Source.
func (b *BAMSource) ScaffoldLength(scaffold string) (PosType, error) {
	ref, ok := b.refs[scaffold]
	if !ok {
		return 0, unknownScaffold(scaffold)
	}
	return PosType(ref.Len()), nil
}

// Depth implements Source.
func (b *BAMSource) Depth(ctx context.Context, scaffold string, start, end PosType) (recs []Record, err error) {
	ref, ok := b.refs[scaffold]
	if !ok {
		return nil, unknownScaffold(scaffold)
	}
	start, end, ok = clip(start, end, PosType(ref.Len()))
	if !ok {
		return nil, nil
	}
	r, err := b.allocateReader()
	if err != nil {
		return nil, err
	}
	defer func() { b.freeReader(r, err) }()

	// 0-based half-open query range.
	start0, end0 := int(start-1), int(end)
	chunks, err := r.index.Chunks(ref, start0, end0)
	if err == index.ErrInvalid || (err == nil && len(chunks) == 0) {
		// No reads on this scaffold or in this range.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err = r.reader.Seek(chunks[0].Begin); err != nil {
		return nil, err
	}
	counts := make([]int32, end0-start0)
	nRead := 0
	for {
		rec, e := r.reader.Read()
		if e == io.EOF {
			break
		}
		if e != nil {
			return nil, e
		}
		// Unmapped reads are stored after all mapped ones.
		if rec.Ref == nil || rec.Ref.ID() > ref.ID() || rec.Pos >= end0 {
			sam.PutInFreePool(rec)
			break
		}
		if rec.Ref.ID() == ref.ID() && b.passes(rec) {
			addDepth(rec, counts, start0)
		}
		sam.PutInFreePool(rec)
		nRead++
		if nRead&0xffff == 0 {
			if err = ctx.Err(); err != nil {
				return nil, err
			}
		}
	}
	vlog.VI(1).Infof("%v: %s:%d-%d, %d reads scanned", b.Path, scaffold, start, end, nRead)
	for i, d := range counts {
		if d != 0 {
			recs = append(recs, Record{Pos: PosType(start0 + i + 1), Depth: int(d)})
		}
	}
	return recs, nil
}

func (b *BAMSource) passes(rec *sam.Record) bool {
	return int(rec.Flags)&b.Opts.FlagExclude == 0 && int(rec.MapQ) >= b.Opts.Mapq
}

// addDepth increments counts[pos - start0] for every aligned base of rec in
// [start0, start0 + len(counts)).
func addDepth(rec *sam.Record, counts []int32, start0 int) {
	pos := rec.Pos
	end0 := start0 + len(counts)
	for _, co := range rec.Cigar {
		consumes := co.Type().Consumes()
		if consumes.Reference == 0 {
			continue
		}
		n := co.Len()
		if consumes.Query == 1 {
			lo, hi := pos, pos+n
			if lo < start0 {
				lo = start0
			}
			if hi > end0 {
				hi = end0
			}
			for p := lo; p < hi; p++ {
				counts[p-start0]++
			}
		}
		pos += n
		if pos >= end0 {
			return
		}
	}
}

// Return an unused reader. If b.freeReaders is nonempty, this function returns
// one from freeReaders. Else, it opens the BAM file and its index.
func (b *BAMSource) allocateReader() (*bamReader, error) {
	b.mu.Lock()
	b.nActive++
	if n := len(b.freeReaders); n > 0 {
		r := b.freeReaders[n-1]
		b.freeReaders = b.freeReaders[:n-1]
		b.mu.Unlock()
		return r, nil
	}
	b.mu.Unlock()

	r := &bamReader{}
	err := func() error {
		ctx := vcontext.Background()
		var err error
		if r.in, err = file.Open(ctx, b.Path); err != nil {
			return err
		}
		indexIn, err := file.Open(ctx, b.indexPath())
		if err != nil {
			return err
		}
		defer indexIn.Close(ctx)
		if r.index, err = bam.ReadIndex(indexIn.Reader(ctx)); err != nil {
			return err
		}
		r.reader, err = bam.NewReader(r.in.Reader(ctx), 1)
		return err
	}()
	if err != nil {
		b.freeReader(r, err)
		return nil, errors.E(errors.Unavailable, err, fmt.Sprintf("depth.BAMSource: open %s", b.Path))
	}
	return r, nil
}

// freeReader returns r to the pool.  A reader that saw an error may be in an
// invalid state, so it is closed instead.
func (b *BAMSource) freeReader(r *bamReader, err error) {
	if err != nil {
		b.closeReader(r)
		r = nil
	}
	b.mu.Lock()
	if r != nil {
		b.freeReaders = append(b.freeReaders, r)
	}
	b.nActive--
	if b.nActive < 0 {
		vlog.Fatalf("Negative active count for %+v", b)
	}
	b.mu.Unlock()
}

func (b *BAMSource) closeReader(r *bamReader) {
	if r.reader != nil {
		b.err.Set(r.reader.Close())
		r.reader = nil
	}
	if r.in != nil {
		b.err.Set(r.in.Close(vcontext.Background()))
		r.in = nil
	}
}

// Close implements Source.  It returns the first error seen while closing
// any reader.
//
// REQUIRES: no Depth call is in progress.
func (b *BAMSource) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.nActive > 0 {
		vlog.Fatalf("%d readers still active for %v", b.nActive, b.Path)
	}
	for _, r := range b.freeReaders {
		b.closeReader(r)
	}
	b.freeReaders = nil
	return b.err.Err()
}

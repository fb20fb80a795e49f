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
	"runtime"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/viralqc/prophagecov/depth"
	"github.com/viralqc/prophagecov/interval"
)

// Opts defines the behavior of Compute and Run.
type Opts struct {
	// Parallelism is the maximum number of scaffolds processed at once;
	// 0 = runtime.NumCPU().
	Parallelism int
	// Region, if nonempty, restricts the report to fragments overlapping it.
	// Fragments outside the region still count as target (not background)
	// for their scaffold.  Format as <scaffold>:<1-based first pos>-<last pos>, <scaffold>:<pos>,
	// or just <scaffold>.
	Region string
}

// DefaultOpts are the default values for Opts.
var DefaultOpts = Opts{}

// Summary counts what a run produced and skipped.
type Summary struct {
	// Rows is the number of report rows.
	Rows int
	// SkippedRows is the number of malformed fragment-table rows.
	SkippedRows int
	// SkippedScaffolds is the number of scaffolds whose length was unknown.
	SkippedScaffolds int
	// SkippedFragments is the number of well-formed fragments dropped, either
	// because their scaffold was skipped or because they extend past the
	// scaffold end.
	SkippedFragments int
}

// scaffoldContext holds everything shared by the fragments of one scaffold.
// It is built once per scaffold and dropped when the scaffold's rows are done.
type scaffoldContext struct {
	scaffold  string
	length    interval.PosType
	fragments []Fragment
	// merged is the union of the fragment intervals, and gaps its complement
	// on [1, length].
	merged []interval.Interval
	gaps   []interval.Interval

	entire    Stat
	nonTarget Stat
}

// scaffoldResult is the outcome of processing one scaffold.
type scaffoldResult struct {
	rows             []Row
	skippedScaffold  bool
	skippedFragments int
}

// newScaffoldContext looks up the scaffold length, drops fragments that don't
// fit on the scaffold, and computes the whole-scaffold and non-target stats.
func newScaffoldContext(ctx context.Context, src depth.Source, group scaffoldFragments) (*scaffoldContext, int, error) {
	length, err := src.ScaffoldLength(group.scaffold)
	if err != nil {
		return nil, 0, err
	}
	c := &scaffoldContext{scaffold: group.scaffold, length: length}
	nSkipped := 0
	ivs := make([]interval.Interval, 0, len(group.fragments))
	for _, frag := range group.fragments {
		if frag.End > length {
			log.Error.Printf("coverage: skipping fragment %s: %s:%v extends past scaffold end %d",
				frag.ID, frag.Scaffold, frag.Interval, length)
			nSkipped++
			continue
		}
		c.fragments = append(c.fragments, frag)
		ivs = append(ivs, frag.Interval)
	}
	c.merged = interval.Merge(ivs)
	c.gaps = interval.Complement(c.merged, length)

	if c.entire, err = ComputeStat(ctx, src, c.scaffold, interval.Interval{Start: 1, End: length}); err != nil {
		return nil, 0, err
	}
	gapStats := make([]Weighted, len(c.gaps))
	for i, gap := range c.gaps {
		s, err := ComputeStat(ctx, src, c.scaffold, gap)
		if err != nil {
			return nil, 0, err
		}
		gapStats[i] = Weighted{Stat: s, Weight: s.Len}
	}
	c.nonTarget = Fold(gapStats)
	log.Debug.Printf("coverage: %s: length %d, %d fragment(s), %d merged target interval(s) covering %d bp, %d gap(s)",
		c.scaffold, length, len(c.fragments), len(c.merged), interval.Covered(c.merged), len(c.gaps))
	return c, nSkipped, nil
}

// processScaffold builds the rows for the fragments of group accepted by keep
// (all of them if keep is nil).  The target and gaps always cover every
// fragment of the scaffold, kept or not.
func processScaffold(ctx context.Context, src depth.Source, group scaffoldFragments, keep func(Fragment) bool) (res scaffoldResult, err error) {
	c, nSkipped, err := newScaffoldContext(ctx, src, group)
	if err != nil {
		if errors.Is(errors.NotExist, err) {
			log.Error.Printf("coverage: skipping %d fragment(s) on scaffold %s: length unknown: %v",
				len(group.fragments), group.scaffold, err)
			res.skippedScaffold = true
			res.skippedFragments = len(group.fragments)
			return res, nil
		}
		return res, err
	}
	res.skippedFragments = nSkipped
	res.rows = make([]Row, 0, len(c.fragments))
	for _, frag := range c.fragments {
		if keep != nil && !keep(frag) {
			continue
		}
		target, err := ComputeStat(ctx, src, c.scaffold, frag.Interval)
		if err != nil {
			return res, err
		}
		res.rows = append(res.rows, NewRow(frag, target, c.entire, c.nonTarget))
	}
	return res, nil
}

// Compute produces one report row per fragment, in fragment-table order
// grouped by scaffold (scaffolds in order of first appearance).  Scaffolds are
// processed independently, up to opts.Parallelism at a time.
//
// A scaffold whose length src doesn't know is skipped, as is a fragment
// extending past its scaffold's end; both are logged and counted in the
// Summary.  Any other error from src aborts the computation.
func Compute(ctx context.Context, src depth.Source, frags []Fragment, opts Opts) ([]Row, Summary, error) {
	var (
		summary Summary
		keep    func(Fragment) bool
	)
	groups := groupByScaffold(frags)
	if opts.Region != "" {
		region, err := interval.ParseRegion(opts.Region)
		if err != nil {
			return nil, summary, err
		}
		keep = func(frag Fragment) bool { return region.Overlaps(frag.Scaffold, frag.Interval) }
		// Scaffolds without a selected fragment need no work, but every
		// fragment of a selected scaffold still belongs to its target.
		selected := groups[:0:0]
		nKept := 0
		for _, g := range groups {
			n := 0
			for _, frag := range g.fragments {
				if keep(frag) {
					n++
				}
			}
			if n > 0 {
				selected = append(selected, g)
				nKept += n
			}
		}
		log.Printf("coverage: region %s: reporting %d of %d fragment(s)", opts.Region, nKept, len(frags))
		groups = selected
	}
	results := make([]scaffoldResult, len(groups))
	if len(groups) > 0 {
		parallelism := opts.Parallelism
		if parallelism <= 0 {
			parallelism = runtime.NumCPU()
		}
		if parallelism > len(groups) {
			parallelism = len(groups)
		}
		// Each job handles a contiguous slice of scaffolds; results are stored
		// by scaffold index so the output order doesn't depend on scheduling.
		err := traverse.Each(parallelism, func(jobIdx int) error {
			startIdx := (jobIdx * len(groups)) / parallelism
			endIdx := ((jobIdx + 1) * len(groups)) / parallelism
			for i := startIdx; i < endIdx; i++ {
				res, err := processScaffold(ctx, src, groups[i], keep)
				if err != nil {
					return errors.E(err, "coverage: scaffold", groups[i].scaffold)
				}
				results[i] = res
			}
			return nil
		})
		if err != nil {
			return nil, summary, err
		}
	}
	var rows []Row
	for _, res := range results {
		rows = append(rows, res.rows...)
		if res.skippedScaffold {
			summary.SkippedScaffolds++
		}
		summary.SkippedFragments += res.skippedFragments
	}
	summary.Rows = len(rows)
	return rows, summary, nil
}

// Run reads the fragment table at fragPath, computes coverage stats against
// src, and writes the report to outPath.  The report is only written if every
// step succeeds.
func Run(ctx context.Context, src depth.Source, fragPath, outPath string, opts Opts) (Summary, error) {
	frags, skipped, err := ReadFragments(ctx, fragPath)
	if err != nil {
		return Summary{}, err
	}
	log.Printf("coverage.Run: %d fragment(s) read from %s, %d malformed row(s) skipped", len(frags), fragPath, len(skipped))
	rows, summary, err := Compute(ctx, src, frags, opts)
	summary.SkippedRows = len(skipped)
	if err != nil {
		return summary, err
	}
	if err = WriteReport(ctx, outPath, rows); err != nil {
		return summary, err
	}
	log.Printf("coverage.Run: done; %d row(s), %d skipped row(s), %d skipped scaffold(s), %d skipped fragment(s)",
		summary.Rows, summary.SkippedRows, summary.SkippedScaffolds, summary.SkippedFragments)
	return summary, nil
}

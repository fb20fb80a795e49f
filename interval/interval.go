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

package interval

import (
	"fmt"
	"math"
	"sort"
)

// PosType is the type used to represent interval coordinates.  int32 should be
// wide enough for some time to come, since that's what BAM is limited to.
type PosType int32

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt32

// Interval is a 1-based closed interval [Start, End] on a single scaffold.
// Single-base intervals (Start == End) are allowed.
type Interval struct {
	Start PosType
	End   PosType
}

// Len returns the number of bases covered by the interval, or 0 if it's
// inverted.
func (iv Interval) Len() int {
	if iv.End < iv.Start {
		return 0
	}
	return int(iv.End-iv.Start) + 1
}

// Valid checks Start >= 1 and Start <= End.  End must also leave room for the
// adjacency check in Merge.
func (iv Interval) Valid() bool {
	return iv.Start >= 1 && iv.Start <= iv.End && iv.End < PosTypeMax
}

// String returns the interval as "start-end".
func (iv Interval) String() string {
	return fmt.Sprintf("%d-%d", iv.Start, iv.End)
}

// Merge sorts ivs by start position and merges every interval that overlaps or
// touches its predecessor (next.Start <= prev.End+1), so a zero-base gap between
// two regions is not preserved.  The result is the minimal ascending list of
// disjoint intervals separated by at least one base.  ivs is not modified.
//
// Merge is idempotent: Merge(Merge(x)) == Merge(x).
func Merge(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		return nil
	}
	sorted := make([]Interval, len(ivs))
	copy(sorted, ivs)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})
	merged := make([]Interval, 1, len(sorted))
	merged[0] = sorted[0]
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End+1 {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Complement returns the gaps in [1, length] not covered by merged, which must
// be ascending and disjoint (i.e. the output of Merge).  This includes the gap
// before the first interval and the one after the last.  Empty gaps are never
// emitted, and intervals reaching past length are clipped.  With no intervals,
// the sole gap is [1, length].
//
// The union of merged (clipped to [1, length]) and the result is exactly
// [1, length], with no overlap.
func Complement(merged []Interval, length PosType) []Interval {
	if length < 1 {
		return nil
	}
	var gaps []Interval
	next := PosType(1)
	for _, iv := range merged {
		if iv.Start > length {
			break
		}
		if iv.Start > next {
			gaps = append(gaps, Interval{Start: next, End: iv.Start - 1})
		}
		if iv.End >= next {
			next = iv.End + 1
		}
	}
	if next <= length {
		gaps = append(gaps, Interval{Start: next, End: length})
	}
	return gaps
}

// Covered returns the total number of bases in a disjoint interval list.
func Covered(ivs []Interval) int {
	n := 0
	for _, iv := range ivs {
		n += iv.Len()
	}
	return n
}

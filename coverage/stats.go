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
	"sort"

	"github.com/viralqc/prophagecov/depth"
	"github.com/viralqc/prophagecov/interval"
	"gonum.org/v1/gonum/stat"
)

// Stat summarizes depth over one region.  Len is the number of positions the
// depth source returned for it; Len == 0 means no data, in which case Mean and
// Median are 0.
type Stat struct {
	Mean   float64
	Median float64
	Len    int
}

// ComputeStat queries src for every position in iv and returns the mean and
// median of the returned depths.  Positions the source omits (zero coverage)
// don't contribute to either statistic.  Errors from the source are returned
// as is.
func ComputeStat(ctx context.Context, src depth.Source, scaffold string, iv interval.Interval) (Stat, error) {
	recs, err := src.Depth(ctx, scaffold, iv.Start, iv.End)
	if err != nil {
		return Stat{}, err
	}
	return statFromRecords(recs), nil
}

func statFromRecords(recs []depth.Record) Stat {
	if len(recs) == 0 {
		return Stat{}
	}
	vals := make([]float64, len(recs))
	for i, rec := range recs {
		vals[i] = float64(rec.Depth)
	}
	s := Stat{
		Mean: stat.Mean(vals, nil),
		Len:  len(vals),
	}
	sort.Float64s(vals)
	s.Median = median(vals)
	return s
}

// median returns the middle value of sorted, or the average of the two middle
// values when the count is even.
//
// REQUIRES: len(sorted) > 0.
func median(sorted []float64) float64 {
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

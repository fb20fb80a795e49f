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
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
	"github.com/viralqc/prophagecov/depth"
	"github.com/viralqc/prophagecov/interval"
)

// failingSource is a depth.Source whose queries fail with err.
type failingSource struct {
	length depth.PosType
	err    error
}

func (s failingSource) Depth(context.Context, string, depth.PosType, depth.PosType) ([]depth.Record, error) {
	return nil, s.err
}

func (s failingSource) ScaffoldLength(string) (depth.PosType, error) { return s.length, nil }

func (s failingSource) Close() error { return nil }

func newTestSource(t *testing.T, length depth.PosType, runs ...[3]int) *depth.MemSource {
	src := depth.NewMemSource()
	require.NoError(t, src.AddScaffold("contig1", length))
	for _, r := range runs {
		require.NoError(t, src.SetRange("contig1", depth.PosType(r[0]), depth.PosType(r[1]), r[2]))
	}
	return src
}

func TestComputeStat(t *testing.T) {
	ctx := context.Background()
	src := newTestSource(t, 20,
		[3]int{1, 1, 2}, [3]int{2, 2, 8}, [3]int{3, 3, 5}, // odd count
		[3]int{10, 10, 1}, [3]int{11, 11, 3}, [3]int{12, 13, 4}, // even count
	)
	tests := []struct {
		iv   interval.Interval
		want Stat
	}{
		{interval.Interval{Start: 1, End: 3}, Stat{Mean: 5, Median: 5, Len: 3}},
		{interval.Interval{Start: 10, End: 13}, Stat{Mean: 3, Median: 3.5, Len: 4}},
		{interval.Interval{Start: 1, End: 1}, Stat{Mean: 2, Median: 2, Len: 1}},
		// Zero-depth positions are not returned, so they don't drag the mean down.
		{interval.Interval{Start: 3, End: 10}, Stat{Mean: 3, Median: 3, Len: 2}},
		{interval.Interval{Start: 4, End: 9}, Stat{}},
		{interval.Interval{Start: 14, End: 20}, Stat{}},
	}
	for _, test := range tests {
		got, err := ComputeStat(ctx, src, "contig1", test.iv)
		require.NoError(t, err)
		expect.EQ(t, got, test.want, "interval %v", test.iv)
	}
}

func TestComputeStatErrors(t *testing.T) {
	ctx := context.Background()
	src := newTestSource(t, 20)
	_, err := ComputeStat(ctx, src, "contig9", interval.Interval{Start: 1, End: 5})
	expect.True(t, errors.Is(errors.NotExist, err), "err: %v", err)

	_, err = ComputeStat(ctx, failingSource{length: 20, err: errors.E(errors.Unavailable, "disk gone")},
		"contig1", interval.Interval{Start: 1, End: 5})
	expect.True(t, errors.Is(errors.Unavailable, err), "err: %v", err)
}

func TestMedian(t *testing.T) {
	expect.EQ(t, median([]float64{7}), 7.0)
	expect.EQ(t, median([]float64{1, 2}), 1.5)
	expect.EQ(t, median([]float64{1, 1, 2, 10}), 1.5)
	expect.EQ(t, median([]float64{0, 1, 2, 3, 100}), 2.0)
}

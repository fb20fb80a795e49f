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
	"math/rand"
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		in   []Interval
		want []Interval
	}{
		{nil, nil},
		{[]Interval{{5, 5}}, []Interval{{5, 5}}},
		{[]Interval{{50, 150}, {140, 200}}, []Interval{{50, 200}}},
		// Adjacent intervals merge; a one-base gap survives.
		{[]Interval{{10, 20}, {21, 30}}, []Interval{{10, 30}}},
		{[]Interval{{10, 20}, {22, 30}}, []Interval{{10, 20}, {22, 30}}},
		// Unsorted input, with containment.
		{[]Interval{{300, 400}, {1, 100}, {320, 330}, {90, 120}},
			[]Interval{{1, 120}, {300, 400}}},
	}
	for _, tt := range tests {
		expect.EQ(t, Merge(tt.in), tt.want, "input %v", tt.in)
	}
}

func TestMergeDoesNotModifyInput(t *testing.T) {
	in := []Interval{{30, 40}, {1, 10}, {5, 35}}
	Merge(in)
	expect.EQ(t, in, []Interval{{30, 40}, {1, 10}, {5, 35}})
}

func TestComplement(t *testing.T) {
	tests := []struct {
		merged []Interval
		length PosType
		want   []Interval
	}{
		{nil, 1000, []Interval{{1, 1000}}},
		{[]Interval{{100, 200}}, 1000, []Interval{{1, 99}, {201, 1000}}},
		{[]Interval{{1, 1000}}, 1000, nil},
		{[]Interval{{1, 10}, {12, 1000}}, 1000, []Interval{{11, 11}}},
		{[]Interval{{50, 200}}, 300, []Interval{{1, 49}, {201, 300}}},
		// Intervals past the scaffold end are clipped.
		{[]Interval{{90, 150}, {400, 500}}, 100, []Interval{{1, 89}}},
		{[]Interval{{5, 10}}, 0, nil},
	}
	for _, tt := range tests {
		expect.EQ(t, Complement(tt.merged, tt.length), tt.want, "merged %v, length %d", tt.merged, tt.length)
	}
}

func randomIntervals(r *rand.Rand, n int, length PosType) []Interval {
	ivs := make([]Interval, n)
	for i := range ivs {
		start := PosType(r.Intn(int(length))) + 1
		end := start + PosType(r.Intn(40))
		if end > length {
			end = length
		}
		ivs[i] = Interval{start, end}
	}
	return ivs
}

func TestMergeIdempotent(t *testing.T) {
	r := rand.New(rand.NewSource(0))
	for iter := 0; iter < 200; iter++ {
		merged := Merge(randomIntervals(r, r.Intn(20), 500))
		require.Equal(t, merged, Merge(merged))
		for i := 1; i < len(merged); i++ {
			require.True(t, merged[i].Start > merged[i-1].End+1, "%v", merged)
		}
	}
}

func TestComplementPartitionsScaffold(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	const length = 500
	for iter := 0; iter < 200; iter++ {
		merged := Merge(randomIntervals(r, r.Intn(20), length))
		gaps := Complement(merged, length)
		var owner [length + 1]int
		for _, iv := range merged {
			for pos := iv.Start; pos <= iv.End; pos++ {
				owner[pos]++
			}
		}
		for _, gap := range gaps {
			require.True(t, gap.Start <= gap.End, "empty gap %v", gap)
			for pos := gap.Start; pos <= gap.End; pos++ {
				owner[pos]++
			}
		}
		for pos := 1; pos <= length; pos++ {
			require.Equal(t, 1, owner[pos], "position %d, merged %v, gaps %v", pos, merged, gaps)
		}
		require.Equal(t, length, Covered(merged)+Covered(gaps))
	}
}

func TestIntervalLen(t *testing.T) {
	expect.EQ(t, Interval{100, 200}.Len(), 101)
	expect.EQ(t, Interval{7, 7}.Len(), 1)
	expect.EQ(t, Interval{8, 7}.Len(), 0)
	expect.True(t, Interval{1, 1}.Valid())
	expect.False(t, Interval{0, 1}.Valid())
	expect.False(t, Interval{5, 4}.Valid())
}

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
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestParseRegion(t *testing.T) {
	tests := []struct {
		region   string
		scaffold string
		start    PosType
		end      PosType
	}{
		{"contig1:1-1000", "contig1", 1, 1000},
		{"contig1:1,000-2,000", "contig1", 1000, 2000},
		{"contig1:1000", "contig1", 1000, 1000},
		{"contig1", "contig1", 1, PosTypeMax - 1},
		{"NODE_1:x:5-10", "NODE_1:x", 5, 10},
	}
	for _, tt := range tests {
		result, err := ParseRegion(tt.region)
		expect.NoError(t, err)
		expect.EQ(t, result.Scaffold, tt.scaffold)
		expect.EQ(t, result.Start, tt.start)
		expect.EQ(t, result.End, tt.end)
	}
	for _, bad := range []string{"", ":1-5", "contig1:0-5", "contig1:10-5", "contig1:a-b"} {
		_, err := ParseRegion(bad)
		expect.NotNil(t, err, "region %q", bad)
	}
}

func TestRegionOverlaps(t *testing.T) {
	r, err := ParseRegion("contig1:100-200")
	expect.NoError(t, err)
	expect.True(t, r.Overlaps("contig1", Interval{150, 400}))
	expect.True(t, r.Overlaps("contig1", Interval{1, 100}))
	expect.False(t, r.Overlaps("contig1", Interval{201, 300}))
	expect.False(t, r.Overlaps("contig2", Interval{150, 160}))
}

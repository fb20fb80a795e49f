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

// Weighted pairs a Stat with its weight in a Fold.
type Weighted struct {
	Stat   Stat
	Weight int
}

// Fold combines items into one Stat, in order.  Mean and median are each kept
// as a running weighted average:
//   avg' = (avg*W + v*w) / (W + w)
// where W is the total weight folded so far.  The median series is averaged
// the same way as the mean series; it is not recomputed from raw depths.
// Items with zero weight are skipped.  If the total weight is 0, the result
// is Stat{}.  The result's Len is the total weight.
func Fold(items []Weighted) Stat {
	var (
		acc   Stat
		total int
	)
	for _, item := range items {
		if item.Weight <= 0 {
			continue
		}
		if total == 0 {
			// Exact for the first item; v*w/w can round.
			acc.Mean, acc.Median = item.Stat.Mean, item.Stat.Median
			total = item.Weight
			continue
		}
		newTotal := float64(total + item.Weight)
		acc.Mean = (acc.Mean*float64(total) + item.Stat.Mean*float64(item.Weight)) / newTotal
		acc.Median = (acc.Median*float64(total) + item.Stat.Median*float64(item.Weight)) / newTotal
		total += item.Weight
	}
	acc.Len = total
	return acc
}

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
	"strconv"
	"strings"
)

// Region is a scaffold name plus a 1-based closed interval on it.
type Region struct {
	Scaffold string
	Interval
}

// ParseRegion parses a region string of one of the forms
//   [scaffold]:[1-based first pos]-[last pos]
//   [scaffold]:[1-based pos]
//   [scaffold]
// The interval [1, PosTypeMax - 1] is returned if there is no positional
// restriction.
func ParseRegion(region string) (result Region, err error) {
	if len(region) == 0 {
		err = fmt.Errorf("interval.ParseRegion: empty region string")
		return
	}
	colonPos := strings.LastIndexByte(region, ':')
	if colonPos == -1 {
		result.Scaffold = region
		result.Start = 1
		result.End = PosTypeMax - 1
		return
	}
	if colonPos == 0 {
		err = fmt.Errorf("interval.ParseRegion: empty scaffold name")
		return
	}
	result.Scaffold = region[:colonPos]
	rangeStr := region[colonPos+1:]
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos int
		if pos, err = parsePos(rangeStr); err != nil {
			return
		}
		result.Start = PosType(pos)
		result.End = PosType(pos)
		return
	}
	var start, end int
	if start, err = parsePos(rangeStr[:dashPos]); err != nil {
		return
	}
	if end, err = parsePos(rangeStr[dashPos+1:]); err != nil {
		return
	}
	if end < start {
		err = fmt.Errorf("interval.ParseRegion: invalid range string %v", rangeStr)
		return
	}
	result.Start = PosType(start)
	result.End = PosType(end)
	return
}

// parsePos parses a 1-based position, tolerating thousands separators.
func parsePos(s string) (int, error) {
	pos, err := strconv.Atoi(strings.Replace(s, ",", "", -1))
	if err != nil {
		return 0, err
	}
	// PosTypeMax itself is excluded so that End+1 never overflows.
	if pos <= 0 || pos >= PosTypeMax {
		return 0, fmt.Errorf("interval.ParseRegion: position %v out of range", s)
	}
	return pos, nil
}

// Overlaps checks whether iv on the named scaffold shares at least one base
// with the region.
func (r Region) Overlaps(scaffold string, iv Interval) bool {
	return scaffold == r.Scaffold && iv.Start <= r.End && iv.End >= r.Start
}

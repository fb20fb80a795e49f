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
	"sync"

	"github.com/biogo/store/step"
	"github.com/grailbio/base/errors"
)

// depthVal is the step.Equaler stored in a scaffold's track.
type depthVal int

func (d depthVal) Equal(e step.Equaler) bool {
	return d == e.(depthVal)
}

// MemSource is an in-memory Source.  Each scaffold's depth track is a
// step.Vector over the 0-based half-open range [0, length), so runs of equal
// depth cost a single node.  Thread safe.
type MemSource struct {
	mu      sync.RWMutex
	lengths map[string]PosType
	tracks  map[string]*step.Vector
}

// NewMemSource creates an empty MemSource.
func NewMemSource() *MemSource {
	return &MemSource{
		lengths: make(map[string]PosType),
		tracks:  make(map[string]*step.Vector),
	}
}

// AddScaffold registers a scaffold of the given length with zero depth
// everywhere.  Re-adding an existing scaffold is an error.
func (m *MemSource) AddScaffold(name string, length PosType) error {
	if length < 1 {
		return errors.E(errors.Invalid, fmt.Sprintf("depth.AddScaffold: scaffold %s has nonpositive length %d", name, length))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lengths[name]; ok {
		return errors.E(errors.Exists, "depth.AddScaffold: duplicate scaffold", name)
	}
	v, err := step.New(0, int(length), depthVal(0))
	if err != nil {
		return err
	}
	m.lengths[name] = length
	m.tracks[name] = v
	return nil
}

// SetRange sets the depth of every position in the 1-based closed range
// [start, end] of scaffold.
func (m *MemSource) SetRange(scaffold string, start, end PosType, depth int) error {
	if depth < 0 {
		return errors.E(errors.Integrity, fmt.Sprintf("depth.SetRange: negative depth %d at %s:%d-%d", depth, scaffold, start, end))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.tracks[scaffold]
	if !ok {
		return unknownScaffold(scaffold)
	}
	if start < 1 || end < start || end > m.lengths[scaffold] {
		return errors.E(errors.Invalid, fmt.Sprintf("depth.SetRange: range %d-%d outside scaffold %s (length %d)", start, end, scaffold, m.lengths[scaffold]))
	}
	v.SetRange(int(start-1), int(end), depthVal(depth))
	return nil
}

// ScaffoldLength implements Source.
func (m *MemSource) ScaffoldLength(scaffold string) (PosType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	length, ok := m.lengths[scaffold]
	if !ok {
		return 0, unknownScaffold(scaffold)
	}
	return length, nil
}

// Depth implements Source.
func (m *MemSource) Depth(ctx context.Context, scaffold string, start, end PosType) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.tracks[scaffold]
	if !ok {
		return nil, unknownScaffold(scaffold)
	}
	start, end, ok = clip(start, end, m.lengths[scaffold])
	if !ok {
		return nil, nil
	}
	// Convert to the track's 0-based half-open coordinates.
	lo, hi := int(start-1), int(end)
	var recs []Record
	v.Do(func(stepStart, stepEnd int, e step.Equaler) {
		d := int(e.(depthVal))
		if d == 0 || stepEnd <= lo || stepStart >= hi {
			return
		}
		if stepStart < lo {
			stepStart = lo
		}
		if stepEnd > hi {
			stepEnd = hi
		}
		for pos := stepStart; pos < stepEnd; pos++ {
			recs = append(recs, Record{Pos: PosType(pos + 1), Depth: d})
		}
	})
	return recs, nil
}

// Close implements Source.
func (m *MemSource) Close() error {
	return nil
}

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

/*
Package depth provides per-position read depth over reference scaffolds.

A Source answers two questions: how long a scaffold is, and what the depth is
at each position of a 1-based closed range on it.  Positions covered by no
reads are omitted from Depth results, the same as "samtools depth" without
-a; callers that average over the returned records therefore average over
covered positions only.

Three implementations are provided:

  - MemSource keeps a step-vector per scaffold in memory.  It is used for
    tests, and as the backing store for depth tables.
  - ReadDepthTable loads a "samtools depth"-style TSV into a MemSource.
  - BAMSource counts depth directly from a coordinate-sorted, indexed BAM.

All of them are safe for concurrent Depth calls.
*/
package depth

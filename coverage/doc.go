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
Package coverage compares read depth inside candidate prophage regions with
depth over the rest of their scaffold.

For every scaffold named in the fragment table, it computes:
  - mean and median depth over each fragment,
  - mean and median depth over the whole scaffold [1, L],
  - a "non-target" mean and median over the complement of the merged
    fragments, folded from per-gap statistics weighted by the number of
    covered positions in each gap,
and reports, per fragment, the ratio of target to non-target mean and median.

Two approximations apply:
  - Means and medians are taken over positions the depth source returns,
    i.e. covered positions only.  Zero-coverage positions are not counted.
  - The non-target median is a weighted average of per-gap medians, not the
    median of the pooled depth values.
*/
package coverage

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
bio-prophage-coverage compares read depth over candidate prophage fragments
with read depth over the rest of their scaffold.

For every fragment in the -coords table it reports the mean and median depth
over the fragment, over the entire scaffold, and over the part of the scaffold
not covered by any fragment, plus the fragment/background ratios.  A ratio is
written as "Inf" when the background depth is 0.

Depth comes from a coordinate-sorted, indexed BAM, or from a `samtools depth`
style table (scaffold, 1-based position, depth) together with a samtools faidx
index supplying scaffold lengths:

  bio-prophage-coverage -coords fragments.tsv -depth sample.bam -outdir results
  bio-prophage-coverage -coords fragments.tsv -depth sample.depth.tsv.gz -fai ref.fa.fai -out report.tsv

Both mean and median are computed over covered positions only, and the
non-prophage statistics are length-weighted averages of the per-gap values.
*/
package main

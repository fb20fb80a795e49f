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

package main

import (
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestReportPath(t *testing.T) {
	expect.EQ(t, reportPath("", "results"), "results/prophage_coverage.tsv")
	expect.EQ(t, reportPath("", "s3://bucket/run1"), "s3://bucket/run1/prophage_coverage.tsv")
	expect.EQ(t, reportPath("x/report.tsv.gz", "results"), "x/report.tsv.gz")
}

func TestIsRemote(t *testing.T) {
	expect.True(t, isRemote("s3://bucket/run1"))
	expect.False(t, isRemote("results"))
	expect.False(t, isRemote("/tmp/results"))
}

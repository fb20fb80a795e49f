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
	"flag"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/file/s3file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/viralqc/prophagecov/coverage"
	"github.com/viralqc/prophagecov/depth"
)

// defaultReportName is the report file name used when only -outdir is given.
const defaultReportName = "prophage_coverage.tsv"

var (
	coordsPath   = flag.String("coords", "", "Fragment table path (TSV with scaffold, fragment, start and stop columns); required")
	depthPath    = flag.String("depth", "", "Coordinate-sorted BAM, or samtools-depth style TSV (scaffold, pos, depth); required")
	bamIndexPath = flag.String("index", depth.DefaultBAMOpts.Index, "Input BAM index path. Defaults to bampath + .bai")
	faiPath      = flag.String("fai", depth.DefaultOpts.Fai, "samtools faidx index of the reference; required when -depth is not a BAM")
	outPath      = flag.String("out", "", "Output report path; a .gz suffix selects gzip. Defaults to <outdir>/"+defaultReportName)
	outDir       = flag.String("outdir", ".", "Output directory, used when -out is unset")
	parallelism  = flag.Int("parallelism", coverage.DefaultOpts.Parallelism, "Maximum number of scaffolds to process simultaneously; 0 = runtime.NumCPU()")
	mapq         = flag.Int("mapq", depth.DefaultBAMOpts.Mapq, "Reads with MAPQ below this level are not counted (BAM input only)")
	flagExclude  = flag.Int("flag-exclude", depth.DefaultBAMOpts.FlagExclude, "Reads with a FLAG bit intersecting this value are not counted (BAM input only)")
	region       = flag.String("region", coverage.DefaultOpts.Region, "Restrict the run to fragments overlapping the specified region. Format as <scaffold>:<1-based first pos>-<last pos>, <scaffold>:<1-based pos>, or just <scaffold>")
)

func usage() {
	fmt.Printf("Usage: %s -coords fragments.tsv -depth {sample.bam,sample.depth.tsv} [OPTIONS]\n", os.Args[0])
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
}

// reportPath returns the path the report is written to.
func reportPath(out, outDir string) string {
	if out != "" {
		return out
	}
	return file.Join(outDir, defaultReportName)
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	file.RegisterImplementation("s3", func() file.Implementation {
		return s3file.NewImplementation(s3file.NewDefaultProvider(session.Options{}), s3file.Options{})
	})

	if flag.NArg() != 0 {
		log.Fatalf("Unexpected positional arguments %v; please check flag syntax", flag.Args())
	}
	if *coordsPath == "" || *depthPath == "" {
		usage()
		log.Fatalf("-coords and -depth are required")
	}
	ctx := vcontext.Background()
	out := reportPath(*outPath, *outDir)
	if *outPath == "" && !isRemote(*outDir) {
		if err := os.MkdirAll(*outDir, 0755); err != nil {
			log.Fatalf("create %s: %v", *outDir, err)
		}
	}

	depthOpts := depth.Opts{
		Fai: *faiPath,
		BAM: depth.BAMOpts{
			Index:       *bamIndexPath,
			Mapq:        *mapq,
			FlagExclude: *flagExclude,
		},
	}
	src, err := depth.Open(ctx, *depthPath, depthOpts)
	if err != nil {
		log.Fatalf("open %s: %v", *depthPath, err)
	}
	opts := coverage.Opts{
		Parallelism: *parallelism,
		Region:      *region,
	}
	_, err = coverage.Run(ctx, src, *coordsPath, out, opts)
	if e := src.Close(); e != nil && err == nil {
		err = e
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Debug.Printf("exiting")
}

// isRemote reports whether path names a non-local file.
func isRemote(path string) bool {
	scheme, _, err := file.ParsePath(path)
	return err == nil && scheme != ""
}

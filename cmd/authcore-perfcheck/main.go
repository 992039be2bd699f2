// Command authcore-perfcheck compares two `go test -bench` outputs and fails
// when a tracked benchmark's median regresses past the threshold.
package main

import (
	"flag"
	"fmt"
	"os"
)

const defaultThreshold = 0.30

func main() {
	var (
		baselinePath  = flag.String("baseline", "", "path to baseline benchmark output")
		candidatePath = flag.String("candidate", "", "path to candidate benchmark output")
		threshold     = flag.Float64("threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
		track         = flag.String("track", "", `benchmarks to compare, "Name:unit,unit;Name:unit" (default: engine benchmarks)`)
	)
	flag.Parse()

	if *baselinePath == "" || *candidatePath == "" {
		fmt.Fprintln(os.Stderr, "-baseline and -candidate are required")
		os.Exit(2)
	}
	if *threshold < 0 {
		fmt.Fprintln(os.Stderr, "-threshold must be >= 0")
		os.Exit(2)
	}

	want := defaultTracked
	if *track != "" {
		var err error
		if want, err = parseTracked(*track); err != nil {
			fmt.Fprintf(os.Stderr, "parse -track: %v\n", err)
			os.Exit(2)
		}
	}

	base, err := readBenchmarks(*baselinePath, want)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse baseline: %v\n", err)
		os.Exit(1)
	}
	cand, err := readBenchmarks(*candidatePath, want)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse candidate: %v\n", err)
		os.Exit(1)
	}

	rows, failures := compare(base, cand, want, *threshold)
	fmt.Println("benchmark unit baseline candidate delta")
	for _, r := range rows {
		fmt.Printf("%s %s %.3f %.3f %+0.2f%%\n", r.Benchmark, r.Unit, r.Baseline, r.Candidate, r.Ratio*100)
	}

	if len(failures) > 0 {
		fmt.Fprintln(os.Stderr, "performance regression threshold exceeded:")
		for _, f := range failures {
			fmt.Fprintf(os.Stderr, "  - %s\n", f)
		}
		os.Exit(1)
	}
}

func readBenchmarks(path string, want tracked) (samples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseBenchmarks(f, want)
}

package main

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// tracked maps a benchmark name (without the -GOMAXPROCS suffix) to the units compared.
type tracked map[string][]string

var defaultTracked = tracked{
	"BenchmarkValidateJWTOnly":     {"ns/op", "allocs/op"},
	"BenchmarkValidateStrict":      {"ns/op", "allocs/op"},
	"BenchmarkRefresh/redis=false": {"ns/op"},
	"BenchmarkRefresh/redis=true":  {"ns/op"},
	"BenchmarkLogin":               {"ns/op"},
}

// parseTracked reads "Name:unit,unit;Name:unit".
func parseTracked(spec string) (tracked, error) {
	out := tracked{}
	for _, entry := range strings.Split(spec, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, units, ok := strings.Cut(entry, ":")
		if !ok || name == "" || units == "" {
			return nil, fmt.Errorf("bad track entry %q", entry)
		}
		for _, u := range strings.Split(units, ",") {
			if u = strings.TrimSpace(u); u != "" {
				out[name] = append(out[name], u)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no benchmarks to track")
	}
	return out, nil
}

type samples map[string]map[string][]float64

func parseBenchmarks(r io.Reader, want tracked) (samples, error) {
	out := samples{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 || !strings.HasPrefix(fields[0], "Benchmark") {
			continue
		}
		name := trimProcs(fields[0])
		if _, ok := want[name]; !ok {
			continue
		}
		if out[name] == nil {
			out[name] = map[string][]float64{}
		}
		// fields[1] is the iteration count; value/unit pairs follow.
		for i := 2; i+1 < len(fields); i += 2 {
			v, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			out[name][fields[i+1]] = append(out[name][fields[i+1]], v)
		}
	}
	return out, scanner.Err()
}

func trimProcs(raw string) string {
	if idx := strings.LastIndexByte(raw, '-'); idx > 0 {
		if _, err := strconv.Atoi(raw[idx+1:]); err == nil {
			return raw[:idx]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

type delta struct {
	Benchmark string
	Unit      string
	Baseline  float64
	Candidate float64
	Ratio     float64
}

// compare returns one row per tracked benchmark/unit and a message for every
// missing sample or regression beyond threshold.
func compare(base, cand samples, want tracked, threshold float64) ([]delta, []string) {
	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	sort.Strings(names)

	var (
		rows     []delta
		failures []string
	)
	for _, name := range names {
		for _, unit := range want[name] {
			b, c := base[name][unit], cand[name][unit]
			if len(b) == 0 || len(c) == 0 {
				failures = append(failures, fmt.Sprintf("missing samples for %s %s", name, unit))
				continue
			}
			bm, cm := median(b), median(c)
			if bm <= 0 {
				failures = append(failures, fmt.Sprintf("invalid baseline median for %s %s", name, unit))
				continue
			}
			d := delta{Benchmark: name, Unit: unit, Baseline: bm, Candidate: cm, Ratio: (cm - bm) / bm}
			rows = append(rows, d)
			if d.Ratio > threshold {
				failures = append(failures, fmt.Sprintf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", name, unit, d.Ratio*100, threshold*100))
			}
		}
	}
	return rows, failures
}

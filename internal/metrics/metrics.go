// Package metrics is a small hand-rolled counter/gauge/duration-
// histogram registry exposed in the Prometheus text exposition
// format. A client_golang Summary/Histogram doesn't expose a plain
// sum/count/max triple per label without fighting its bucket model,
// so the registry below is a direct implementation of the exact shape
// §4.H asks for (see DESIGN.md).
package metrics

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
)

var invalidNameChar = regexp.MustCompile(`[^A-Za-z0-9_]`)

// SanitizeName rewrites s so it is safe to use as a Prometheus metric
// or label name: any character outside [A-Za-z0-9_] becomes '_'.
func SanitizeName(s string) string {
	return invalidNameChar.ReplaceAllString(s, "_")
}

type opStats struct {
	sum   time.Duration
	count int64
	max   time.Duration
}

// Registry is a process-wide, mutex-guarded counter/gauge/duration
// store.
type Registry struct {
	mu       sync.Mutex
	counters map[string]int64
	gauges   map[string]float64
	opDur    map[string]*opStats
}

func New() *Registry {
	return &Registry{
		counters: make(map[string]int64),
		gauges:   make(map[string]float64),
		opDur:    make(map[string]*opStats),
	}
}

// Inc increments a named counter by 1. key is sanitized on read, not
// on write, so callers can log the original key too.
func (r *Registry) Inc(key string) {
	r.Add(key, 1)
}

func (r *Registry) Add(key string, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[key] += delta
}

func (r *Registry) SetGauge(key string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[key] = value
}

// ObserveOpDuration records one timed operation under verb.
func (r *Registry) ObserveOpDuration(verb string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.opDur[verb]
	if !ok {
		s = &opStats{}
		r.opDur[verb] = s
	}
	s.sum += d
	s.count++
	if d > s.max {
		s.max = d
	}
}

// CounterSnapshot returns a stable-ordered copy of all counters.
func (r *Registry) CounterSnapshot() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.counters))
	for k, v := range r.counters {
		out[k] = v
	}
	return out
}

func (r *Registry) GaugeSnapshot() map[string]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]float64, len(r.gauges))
	for k, v := range r.gauges {
		out[k] = v
	}
	return out
}

// Text renders the full registry in Prometheus text exposition
// format: one line per counter (name sanitized, with a label derived
// from the remainder of the key when the key contains a ':'),
// sum/count/max lines per verb under op_duration_seconds, and the
// supplied fixed gauges.
func (r *Registry) Text(fixedGauges map[string]float64) string {
	r.mu.Lock()
	counters := make(map[string]int64, len(r.counters))
	for k, v := range r.counters {
		counters[k] = v
	}
	opDur := make(map[string]opStats, len(r.opDur))
	for k, v := range r.opDur {
		opDur[k] = *v
	}
	r.mu.Unlock()

	var b strings.Builder

	names := sortedKeys(counters)
	for _, key := range names {
		metric, label := splitLabel(key)
		if label == "" {
			fmt.Fprintf(&b, "%s %d\n", SanitizeName(metric), counters[key])
		} else {
			fmt.Fprintf(&b, "%s{verb=%q} %d\n", SanitizeName(metric), label, counters[key])
		}
	}

	verbs := make([]string, 0, len(opDur))
	for v := range opDur {
		verbs = append(verbs, v)
	}
	sort.Strings(verbs)
	for _, verb := range verbs {
		s := opDur[verb]
		fmt.Fprintf(&b, "op_duration_seconds_sum{verb=%q} %f\n", verb, s.sum.Seconds())
		fmt.Fprintf(&b, "op_duration_seconds_count{verb=%q} %d\n", verb, s.count)
		fmt.Fprintf(&b, "op_duration_seconds_max{verb=%q} %f\n", verb, s.max.Seconds())
	}

	gaugeNames := make([]string, 0, len(fixedGauges))
	for k := range fixedGauges {
		gaugeNames = append(gaugeNames, k)
	}
	sort.Strings(gaugeNames)
	for _, k := range gaugeNames {
		fmt.Fprintf(&b, "%s %f\n", SanitizeName(k), fixedGauges[k])
	}

	return b.String()
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// splitLabel splits a counter key of the form "metric:label" into its
// two parts; keys without a ':' have no label.
func splitLabel(key string) (metric, label string) {
	idx := strings.IndexByte(key, ':')
	if idx < 0 {
		return key, ""
	}
	return key[:idx], key[idx+1:]
}

package analytics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"influencekit/internal/model"
)

// HourBucket counts sends in the hour starting at Start (UTC).
type HourBucket struct {
	Start time.Time
	Count int
}

// HourlySends aggregates events into per-hour buckets keyed by hour start.
func HourlySends(events []model.SendEvent) map[time.Time]int {
	buckets := make(map[time.Time]int)
	for _, e := range events {
		buckets[e.Time.UTC().Truncate(time.Hour)]++
	}
	return buckets
}

// SortedBucketKeys returns sorted hour keys.
func SortedBucketKeys(m map[time.Time]int) []time.Time {
	keys := make([]time.Time, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

// LastDay returns the 24 hourly buckets ending with the hour containing now,
// oldest first, including empty hours.
func LastDay(events []model.SendEvent, now time.Time) []HourBucket {
	counts := HourlySends(events)
	last := now.UTC().Truncate(time.Hour)
	out := make([]HourBucket, 0, 24)
	for h := 23; h >= 0; h-- {
		start := last.Add(-time.Duration(h) * time.Hour)
		out = append(out, HourBucket{Start: start, Count: counts[start]})
	}
	return out
}

// Total sums the bucket counts.
func Total(buckets []HourBucket) int {
	n := 0
	for _, b := range buckets {
		n += b.Count
	}
	return n
}

// RenderHistogram writes one bar per bucket, scaled to width characters.
func RenderHistogram(w io.Writer, buckets []HourBucket, width int) error {
	peak := 0
	for _, b := range buckets {
		peak = max(peak, b.Count)
	}
	for _, b := range buckets {
		bar := 0
		if peak > 0 {
			bar = b.Count * width / peak
		}
		if b.Count > 0 && bar == 0 {
			bar = 1
		}
		if _, err := fmt.Fprintf(w, "%s  %-*s %d\n", b.Start.Format("2006-01-02 15:00"), width, strings.Repeat("#", bar), b.Count); err != nil {
			return err
		}
	}
	return nil
}

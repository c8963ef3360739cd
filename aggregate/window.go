// Package aggregate turns validated events into deterministic,
// time-windowed counter increments.
//
// Bucket keys are pure functions of (aggregation, permutation, window,
// timestamp): re-deriving the same tuple always yields byte-identical
// keys, which is what makes counters accumulate instead of fragment.
package aggregate

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cursive-labs/beacon/schema"
)

// Bucket key literals. These are backend-compatible wire constants and
// must not change.
const (
	// BucketPrefix opens every bucket key.
	BucketPrefix = "__aggregation__"
	// ChunkSep separates the major key chunks.
	ChunkSep = "::"
	// NameSep joins an aggregation name and a permutation name.
	NameSep = "-"
	// ValueSep joins sub-components within a chunk.
	ValueSep = ":"
	// GlobalChunk is the all-time window chunk.
	GlobalChunk = "__global__"
)

const secondsPerDay = 86400

// Chunk derives the calendar chunk for a window and timestamp.
// Timestamps in the same calendar window produce identical chunks;
// timestamps in different windows differ.
//
// Multi-span windows (Count > 1) bucket by span start: the absolute
// week or month index is truncated to the span boundary before
// formatting, so every timestamp inside one span shares the chunk.
func Chunk(w schema.Window, ts time.Time) string {
	ts = ts.UTC()
	span := w.Span()

	switch w.Kind {
	case schema.WindowDay:
		day := ts.Unix() / secondsPerDay
		day -= day % int64(span)
		return strconv.FormatInt(day, 10)

	case schema.WindowWeek:
		abs := absWeek(ts)
		abs -= abs % int64(span)
		year, week := weekOf(abs)
		return fmt.Sprintf("%d%s%d", year, ValueSep, week)

	case schema.WindowMonth:
		idx := int64(ts.Year())*12 + int64(ts.Month()) - 1
		idx -= idx % int64(span)
		return fmt.Sprintf("%d%s%d", idx/12, ValueSep, idx%12+1)

	case schema.WindowYear:
		return strconv.Itoa(ts.Year())

	case schema.WindowForever:
		return GlobalChunk

	default:
		// Unknown kinds fall into the global bucket rather than
		// fragmenting counters under a garbage chunk.
		return GlobalChunk
	}
}

// BucketKey assembles the full bucket key for one
// (aggregation, permutation, window, timestamp) tuple:
//
//	__aggregation__::<name>[-<permutation>]::<chunk>
//
// Single-span windows emit the bare calendar chunk, preserving the
// legacy backend key grammar. Multi-span windows prepend a
// <kind>:<count> discriminator chunk so distinct span counts of the
// same kind never collide:
//
//	__aggregation__::<name>::week:2::2013:13
func BucketKey(name, permutation string, w schema.Window, ts time.Time) string {
	full := name
	if permutation != "" {
		full = name + NameSep + permutation
	}
	chunk := Chunk(w, ts)
	if w.Span() > 1 {
		return BucketPrefix + ChunkSep + full + ChunkSep +
			string(w.Kind) + ValueSep + strconv.Itoa(w.Span()) + ChunkSep + chunk
	}
	return BucketPrefix + ChunkSep + full + ChunkSep + chunk
}

// mondayDayOffset is the epoch-day index of the first Monday on or
// after the Unix epoch (1970-01-05); the epoch itself is a Thursday.
const mondayDayOffset = 4

// absWeek returns the absolute ISO week index of the timestamp: the
// number of whole weeks between the Monday opening ts's ISO week and
// the first post-epoch Monday.
func absWeek(ts time.Time) int64 {
	day := mondayOf(ts).Unix() / secondsPerDay
	return (day - mondayDayOffset) / 7
}

// mondayOf truncates a timestamp to the Monday opening its ISO week.
func mondayOf(ts time.Time) time.Time {
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
	wd := int(day.Weekday())
	if wd == 0 {
		wd = 7 // Sunday closes the ISO week
	}
	return day.AddDate(0, 0, -(wd - 1))
}

// weekOf converts an absolute week index back to (ISO year, ISO week).
func weekOf(abs int64) (int, int) {
	monday := time.Unix((abs*7+mondayDayOffset)*secondsPerDay, 0).UTC()
	return monday.ISOWeek()
}

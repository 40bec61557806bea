package shared

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// MaxDurationSeconds bounds a single video's duration. Larger upstream values are treated as
// unparseable, which keeps playlist totals far from int overflow.
const MaxDurationSeconds = math.MaxInt32

// isoDuration matches the subset of ISO 8601 durations the Data API returns for videos.
// The day component only shows up on streams longer than 24h.
var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration converts a "PT#H#M#S" duration to seconds.
//
// Absent components count as zero, so "PT" is 0. Strings that do not match the grammar also yield 0,
// as do durations above [MaxDurationSeconds]; the parser never fails.
func ParseISODuration(s string) int {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil {
		return 0
	}

	total := 0
	for i, unit := range []int{86400, 3600, 60, 1} {
		n, ok := component(m[i+1])
		if !ok || n > (MaxDurationSeconds-total)/unit {
			return 0
		}
		total += n * unit
	}
	return total
}

func component(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// FormatDuration renders seconds as m:ss or h:mm:ss.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

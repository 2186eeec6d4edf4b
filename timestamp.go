package regs

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// TimestampLayout is the display format records are stamped with at creation.
const TimestampLayout = "01/02/2006 03:04 PM"

const instantCacheSize = 4096

// instantCache memoizes parsed instants; sorting re-parses the same strings.
var instantCache, _ = lru.New[string, time.Time](instantCacheSize)

// FormatTimestamp renders t in the record display format.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a "M/D/YYYY H:MM AM|PM" display timestamp into a
// local instant. A missing minute counts as zero and an unknown period
// applies no 12-hour adjustment. Only a malformed date or hour is an error.
func ParseTimestamp(s string) (time.Time, error) {
	parts := strings.Fields(s)
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}

	date := strings.Split(parts[0], "/")
	if len(date) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	month, err1 := strconv.Atoi(date[0])
	day, err2 := strconv.Atoi(date[1])
	year, err3 := strconv.Atoi(date[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}

	clock := strings.Split(parts[1], ":")
	hour, err := strconv.Atoi(clock[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	minute := 0
	if len(clock) > 1 {
		if m, err := strconv.Atoi(clock[1]); err == nil {
			minute = m
		}
	}

	var period string
	if len(parts) > 2 {
		period = strings.ToUpper(parts[2])
	}
	switch {
	case period == "PM" && hour != 12:
		hour += 12
	case period == "AM" && hour == 12:
		hour = 0
	}

	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.Local), nil
}

// TimestampInstant is ParseTimestamp without the error: unparseable input
// maps to the zero time, which orders before every real instant.
func TimestampInstant(s string) time.Time {
	if t, ok := instantCache.Get(s); ok {
		return t
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		t = time.Time{}
	}
	instantCache.Add(s, t)
	return t
}

// CompareTimestamps orders two display timestamps chronologically.
func CompareTimestamps(a, b string) int {
	return TimestampInstant(a).Compare(TimestampInstant(b))
}

package common

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// epochMillisRegexp matches timestamps that are already expressed as
// milliseconds since the epoch.
var epochMillisRegexp = regexp.MustCompile(`^\d+$`)

// FormatTimestamp formats a timestamp as the number of milliseconds since the
// epoch, which is the representation used in outgoing notification messages.
func FormatTimestamp(timestamp time.Time) string {
	return fmt.Sprintf("%d", timestamp.UnixNano()/int64(time.Millisecond))
}

// FixTimestamp normalizes a timestamp string to milliseconds since the epoch.
// Timestamps that are already in that format are returned unmodified, and
// empty timestamps are passed through so that callers can apply their own
// default. RFC3339 and RFC3339Nano timestamps are converted.
func FixTimestamp(timestamp string) (string, error) {
	if timestamp == "" || epochMillisRegexp.MatchString(timestamp) {
		return timestamp, nil
	}

	parsed, err := time.Parse(time.RFC3339Nano, timestamp)
	if err != nil {
		return "", errors.Wrapf(err, "unable to normalize timestamp `%s`", timestamp)
	}

	return FormatTimestamp(parsed), nil
}

// ParseTimestamp converts a timestamp string in any of the accepted formats
// to a time.Time. An empty timestamp string yields the zero time so that
// callers can substitute the current time.
func ParseTimestamp(timestamp string) (time.Time, error) {
	fixed, err := FixTimestamp(timestamp)
	if err != nil {
		return time.Time{}, err
	}
	if fixed == "" {
		return time.Time{}, nil
	}

	millis, err := strconv.ParseInt(fixed, 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "unable to parse timestamp `%s`", timestamp)
	}

	return time.Unix(millis/1000, millis%1000*int64(time.Millisecond)), nil
}

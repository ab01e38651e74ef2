package common

import (
	"testing"
	"time"
)

func GetTestTimestamp() time.Time {
	return time.Unix(int64(1594336370), int64(706917000))
}

func GetTestTimestampMillisecondPrecision() string {
	return "1594336370706"
}

func GetTestTimestampSecondPrecision() string {
	return "1594336370000"
}

func TestFormatTimestamp(t *testing.T) {
	timestamp := GetTestTimestamp()
	expected := GetTestTimestampMillisecondPrecision()
	actual := FormatTimestamp(timestamp)
	if actual != expected {
		t.Errorf("unexpected timestamp: got '%s' instead of '%s'", actual, expected)
	}
}

func TestFixTimestampEmptyString(t *testing.T) {
	actual, err := FixTimestamp("")
	if err != nil {
		t.Errorf("FixTimestamp returned an error: %s", err.Error())
	}
	if actual != "" {
		t.Errorf("FixTimestamp returned '%s' instead of an empty string", actual)
	}
}

func TestFixTimestampMillis(t *testing.T) {
	expected := GetTestTimestampMillisecondPrecision()
	actual, err := FixTimestamp(expected)
	if err != nil {
		t.Errorf("FixTimestamp returned an error: %s", err.Error())
	}
	if actual != expected {
		t.Errorf("FixTimestamp returned '%s' instead of '%s'", actual, expected)
	}
}

func TestFixTimestampRFC3339(t *testing.T) {
	timestamp := GetTestTimestamp()
	original := timestamp.Format(time.RFC3339)
	expected := GetTestTimestampSecondPrecision()
	actual, err := FixTimestamp(original)
	if err != nil {
		t.Errorf("FixTimestamp returned an error: %s", err.Error())
	}
	if actual != expected {
		t.Errorf("FixTimestamp returned '%s' instead of '%s'", actual, expected)
	}
}

func TestFixTimestampRFC3339Nano(t *testing.T) {
	timestamp := GetTestTimestamp()
	original := timestamp.Format(time.RFC3339Nano)
	expected := GetTestTimestampMillisecondPrecision()
	actual, err := FixTimestamp(original)
	if err != nil {
		t.Errorf("FixTimestamp returned an error: %s", err.Error())
	}
	if actual != expected {
		t.Errorf("FixTimestamp returned '%s' instead of '%s'", actual, expected)
	}
}

func TestFixTimestampGarbage(t *testing.T) {
	_, err := FixTimestamp("yesterday-ish")
	if err == nil {
		t.Error("FixTimestamp did not return an error for an unparseable timestamp")
	}
}

func TestParseTimestampMillis(t *testing.T) {
	expected := time.Unix(int64(1594336370), int64(706000000))
	actual, err := ParseTimestamp(GetTestTimestampMillisecondPrecision())
	if err != nil {
		t.Errorf("ParseTimestamp returned an error: %s", err.Error())
	}
	if !actual.Equal(expected) {
		t.Errorf("ParseTimestamp returned '%s' instead of '%s'", actual, expected)
	}
}

func TestParseTimestampRFC3339Nano(t *testing.T) {
	timestamp := GetTestTimestamp()
	actual, err := ParseTimestamp(timestamp.Format(time.RFC3339Nano))
	if err != nil {
		t.Errorf("ParseTimestamp returned an error: %s", err.Error())
	}

	// The parsed value is truncated to millisecond precision.
	expected := time.Unix(int64(1594336370), int64(706000000))
	if !actual.Equal(expected) {
		t.Errorf("ParseTimestamp returned '%s' instead of '%s'", actual, expected)
	}
}

func TestParseTimestampEmptyString(t *testing.T) {
	actual, err := ParseTimestamp("")
	if err != nil {
		t.Errorf("ParseTimestamp returned an error: %s", err.Error())
	}
	if !actual.IsZero() {
		t.Errorf("ParseTimestamp returned '%s' instead of the zero time", actual)
	}
}

func TestParseTimestampGarbage(t *testing.T) {
	_, err := ParseTimestamp("yesterday-ish")
	if err == nil {
		t.Error("ParseTimestamp did not return an error for an unparseable timestamp")
	}
}

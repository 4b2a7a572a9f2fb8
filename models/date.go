package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const dateOnlyLayout = "2006-01-02"

// DateOnly is a calendar date without a time-of-day component. it is
// stored as a plain date and accepts only unambiguous input formats
// (YYYY-MM-DD or full RFC 3339); anything else is rejected at the
// boundary rather than guessed at
type DateOnly struct {
	time.Time
}

// ParseDateOnly parses a strict date string. day/month-swapped or other
// ambiguous formats fail here on purpose
func ParseDateOnly(value string) (DateOnly, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(dateOnlyLayout, value); err == nil {
		return DateOnly{t}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return DateOnly{t.UTC().Truncate(24 * time.Hour)}, nil
	}
	return DateOnly{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
}

func (d DateOnly) String() string {
	return d.Format(dateOnlyLayout)
}

func (d DateOnly) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`null`), nil
	}
	return []byte(`"` + d.Format(dateOnlyLayout) + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "null" || raw == "" {
		*d = DateOnly{}
		return nil
	}
	parsed, err := ParseDateOnly(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// GormDataType maps DateOnly to a plain date column
func (DateOnly) GormDataType() string {
	return "date"
}

// Value implements driver.Valuer for GORM
func (d DateOnly) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Format(dateOnlyLayout), nil
}

// Scan implements sql.Scanner for GORM
func (d *DateOnly) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = DateOnly{}
		return nil
	case time.Time:
		*d = DateOnly{v}
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DateOnly", value)
	}
}

func (d *DateOnly) scanString(value string) error {
	// SQLite may hand back either the bare date or a full timestamp
	if t, err := time.Parse(dateOnlyLayout, value); err == nil {
		*d = DateOnly{t}
		return nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		*d = DateOnly{t}
		return nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05-07:00", value); err == nil {
		*d = DateOnly{t}
		return nil
	}
	return fmt.Errorf("cannot parse %q as DateOnly", value)
}

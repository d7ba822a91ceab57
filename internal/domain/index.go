package domain

import (
	"regexp"
	"time"
)

// IndexDateLayout is the date stamp embedded in index names, e.g.
// logs-2020.01.31.
const IndexDateLayout = "2006.01.02"

var indexDatePattern = regexp.MustCompile(`\d{4}\.\d{2}\.\d{2}`)

// IndexDescriptor is one index seen at enumeration time. Date is nil when
// the name carries no parseable date stamp.
type IndexDescriptor struct {
	Name string
	Date *time.Time
}

func DescribeIndex(name string) IndexDescriptor {
	d := IndexDescriptor{Name: name}

	stamp := indexDatePattern.FindString(name)
	if stamp == "" {
		return d
	}
	t, err := time.ParseInLocation(IndexDateLayout, stamp, time.UTC)
	if err != nil {
		return d
	}
	d.Date = &t
	return d
}

func (d IndexDescriptor) HasDate() bool {
	return d.Date != nil
}

// OlderThan reports whether the index date is strictly before cutoff.
// Undated indices are never older.
func (d IndexDescriptor) OlderThan(cutoff time.Time) bool {
	return d.Date != nil && d.Date.Before(cutoff)
}

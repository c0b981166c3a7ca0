package climatology

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrEmptySeries is returned when a query needs at least one daily observation
	ErrEmptySeries = errors.New("empty series")

	// ErrEmptyAggregates is returned when there are no monthly aggregates in range
	ErrEmptyAggregates = errors.New("empty aggregates")

	// ErrEmptyClimatology is returned when regime months are requested without records
	ErrEmptyClimatology = errors.New("empty climatology")
)

// InvalidRangeError reports a year range whose start is after its end
type InvalidRangeError struct {
	Start int
	End   int
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid year range: start %d is after end %d", e.Start, e.End)
}

// IsTransient returns false as the range is a property of the request
func (e *InvalidRangeError) IsTransient() bool {
	return false
}

// NoDataForMonthError lists the calendar months with no contributing year
type NoDataForMonthError struct {
	Months []time.Month
}

func (e *NoDataForMonthError) Error() string {
	names := make([]string, len(e.Months))
	for i, m := range e.Months {
		names[i] = m.String()
	}
	return "no data for month: " + strings.Join(names, ", ")
}

// IsTransient returns false as the input series is immutable
func (e *NoDataForMonthError) IsTransient() bool {
	return false
}

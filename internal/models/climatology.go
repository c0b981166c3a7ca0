package models

import "time"

// MonthlyAggregate is the accumulated value of one station-year-month.
// DaysObserved counts the daily values that contributed to Total, so a true zero can be told
// apart from a mostly-missing month; SyntheticDays counts the gap-filled ones among them.
type MonthlyAggregate struct {
	Year          int        `json:"year"`
	Month         time.Month `json:"month"`
	Total         float64    `json:"total"`
	DaysObserved  int        `json:"days_observed"`
	SyntheticDays int        `json:"synthetic_days"`
}

// ClimatologyRecord summarizes the yearly totals of one calendar month, full precision
type ClimatologyRecord struct {
	Month time.Month `json:"month"`
	Mean  float64    `json:"mean"`
	Max   float64    `json:"max"`
	Min   float64    `json:"min"`
	Years int        `json:"years"`
}

// Package views contains the pure derivation layer: temporal
// classification, list filtering and ordering, and dashboard aggregates.
// Nothing here touches storage; every function maps inputs to outputs for
// a caller-supplied clock.
package views

import (
	"math"
	"time"
)

// DueClass buckets a due date relative to an evaluation instant.
type DueClass string

// Due classification values. Every (due, now) pair maps to exactly one.
const (
	DuePast     DueClass = "past"
	DueToday    DueClass = "today"
	DueTomorrow DueClass = "tomorrow"
	DueFuture   DueClass = "future"
	DueNone     DueClass = "none"
)

// DueClassification is the result of classifying a due date: the bucket
// plus the overdue distance in whole days (zero unless DuePast).
type DueClassification struct {
	Class DueClass `json:"class"`

	// DaysOverdue is the overdue distance in whole days, measured from
	// the start of today so the label is stable across the day. A task
	// due yesterday evening is 1 day overdue all of today.
	DaysOverdue int `json:"days_overdue"`
}

// ClassifyDue buckets a due date against now. Calendar-day comparisons use
// the location of now, so "today" means today on the caller's clock. A nil
// due date is DueNone.
//
// DuePast requires the due date to fall strictly before the start of
// today: a task due earlier today is DueToday, not overdue yet.
func ClassifyDue(due *time.Time, now time.Time) DueClassification {
	if due == nil {
		return DueClassification{Class: DueNone}
	}

	loc := now.Location()
	d := due.In(loc)

	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	startOfTomorrow := startOfToday.AddDate(0, 0, 1)
	startOfDayAfter := startOfToday.AddDate(0, 0, 2)

	switch {
	case d.Before(startOfToday):
		days := int(math.Ceil(startOfToday.Sub(d).Hours() / 24))
		if days < 1 {
			days = 1
		}
		return DueClassification{Class: DuePast, DaysOverdue: days}
	case d.Before(startOfTomorrow):
		return DueClassification{Class: DueToday}
	case d.Before(startOfDayAfter):
		return DueClassification{Class: DueTomorrow}
	default:
		return DueClassification{Class: DueFuture}
	}
}

// Package services contains the business logic of the budgeting backend: the
// recurring rule engine, the calendar stepping it relies on, and the ledger
// service that validates and orchestrates writes for the HTTP layer.
package services

import (
	"fmt"

	"budgetd/internal/core"
)

// NextDueDate returns the due date one frequency step after current.
//
// Monthly steps anchor to the rule's start-date day-of-month and clamp to the
// last valid day of each target month, so a rule started on Jan 31 falls due
// on Feb 28 (or 29) and back on Mar 31. Yearly steps anchor to the start
// date's month and day with the Feb-29 clamp on non-leap years. The result is
// always strictly after current, which is what makes the catch-up loop
// terminate.
func NextDueDate(current core.Date, freq core.Frequency, start core.Date) (core.Date, error) {
	switch freq {
	case core.Daily:
		return current.AddDays(1), nil
	case core.Weekly:
		return current.AddDays(7), nil
	case core.Monthly:
		// Normalize to the first of the next month, then clamp the anchor day.
		first := core.NewDate(current.Year(), current.Month()+1, 1)
		day := min(start.Day(), core.LastDayOfMonth(first.Year(), first.Month()))
		return core.NewDate(first.Year(), first.Month(), day), nil
	case core.Yearly:
		year := current.Year() + 1
		day := min(start.Day(), core.LastDayOfMonth(year, start.Month()))
		return core.NewDate(year, start.Month(), day), nil
	default:
		return core.Date{}, fmt.Errorf("unknown frequency: %s", freq)
	}
}

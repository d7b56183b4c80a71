// This file implements the strategy pattern for budget periods. Each period
// type knows how to compute the window that follows a finished budget.

package services

import (
	"fmt"
	"sync"
	"time"

	"aurabudget/internal/core"
)

// PeriodStrategy computes the successor window of an inclusive [start, end] budget window.
type PeriodStrategy interface {
	Next(start, end core.Date) (core.Date, core.Date)
}

// WeeklyPeriod shifts the window by seven days.
type WeeklyPeriod struct{}

func (WeeklyPeriod) Next(start, end core.Date) (core.Date, core.Date) {
	return start.AddDays(7), end.AddDays(7)
}

// MonthlyPeriod shifts the window by one calendar month.
type MonthlyPeriod struct{}

func (MonthlyPeriod) Next(start, end core.Date) (core.Date, core.Date) {
	return startAfter(addMonths(start, 1), end), addMonths(end, 1)
}

// YearlyPeriod shifts the window by one calendar year.
type YearlyPeriod struct{}

func (YearlyPeriod) Next(start, end core.Date) (core.Date, core.Date) {
	return startAfter(addMonths(start, 12), end), addMonths(end, 12)
}

// CustomPeriod starts the day after end and keeps the same length.
type CustomPeriod struct{}

func (CustomPeriod) Next(start, end core.Date) (core.Date, core.Date) {
	length := start.DaysUntil(end)
	next := end.AddDays(1)
	return next, next.AddDays(length)
}

// addMonths moves d by n calendar months. Days past the target month's end
// clamp to its last day, and a month-end date stays on the month end.
func addMonths(d core.Date, n int) core.Date {
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := lastDayOfMonth(first.Year(), first.Month())

	day := d.Day()
	if day > last || day == lastDayOfMonth(d.Year(), d.Month()) {
		day = last
	}
	return core.NewDate(first.Year(), int(first.Month()), day)
}

// startAfter moves next past prevEnd when month-end clamping would make the
// successor overlap its predecessor.
func startAfter(next, prevEnd core.Date) core.Date {
	if next.After(prevEnd.Time) {
		return next
	}
	return prevEnd.AddDays(1)
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

var (
	strategiesMu     sync.RWMutex
	periodStrategies = map[core.BudgetPeriod]PeriodStrategy{
		core.PeriodWeekly:  WeeklyPeriod{},
		core.PeriodMonthly: MonthlyPeriod{},
		core.PeriodYearly:  YearlyPeriod{},
		core.PeriodCustom:  CustomPeriod{},
	}
)

// GetPeriodStrategy returns the strategy for a budget period.
func GetPeriodStrategy(period core.BudgetPeriod) (PeriodStrategy, error) {
	strategiesMu.RLock()
	defer strategiesMu.RUnlock()
	s, ok := periodStrategies[period]
	if !ok {
		return nil, fmt.Errorf("unknown budget period: %s", period)
	}
	return s, nil
}

// RegisterPeriodStrategy adds or replaces the strategy for a period.
func RegisterPeriodStrategy(period core.BudgetPeriod, s PeriodStrategy) {
	strategiesMu.Lock()
	defer strategiesMu.Unlock()
	periodStrategies[period] = s
}

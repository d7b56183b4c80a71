package core

import "time"

// Remaining is Amount minus Spent. Negative when over budget.
func (b Budget) Remaining() Money {
	return b.Amount.Sub(b.Spent)
}

func (b Budget) SpentRatio() float64 {
	return Ratio(b.Spent, b.Amount)
}

func (b Budget) SpentPercentage() float64 {
	return Percent(b.Spent, b.Amount)
}

func (b Budget) IsOverBudget() bool {
	return b.Spent.Cents > b.Amount.Cents
}

// IsExpired reports whether now falls after the last day of the budget.
func (b Budget) IsExpired(now time.Time) bool {
	return DateOf(now).After(b.EndDate.Time)
}

func (b Budget) IsActive(now time.Time) bool {
	return !b.IsExpired(now)
}

// DaysRemaining counts whole days until EndDate. It is 0 on the last day
// and once expired.
func (b Budget) DaysRemaining(now time.Time) int {
	if b.IsExpired(now) {
		return 0
	}
	return DateOf(now).DaysUntil(b.EndDate)
}

// Covers reports whether d lies inside the budget window.
func (b Budget) Covers(d Date) bool {
	return !d.Before(b.StartDate.Time) && !d.After(b.EndDate.Time)
}

// Matches reports whether the expense counts against the budget.
func (b Budget) Matches(e Expense) bool {
	if b.CategoryID != nil && *b.CategoryID != e.CategoryID {
		return false
	}
	return b.Covers(e.Date)
}

// SpentFrom sums the expenses that count against the budget.
func (b Budget) SpentFrom(expenses []Expense) Money {
	var total Money
	for _, e := range expenses {
		if b.Matches(e) {
			total = total.Add(e.Amount)
		}
	}
	return total
}

// Progress is Current/Target capped at 1.
func (g Goal) Progress() float64 {
	r := Ratio(g.CurrentAmount, g.TargetAmount)
	if r > 1 {
		return 1
	}
	return r
}

func (g Goal) ProgressPercentage() float64 {
	p := Percent(g.CurrentAmount, g.TargetAmount)
	if p > 100 {
		return 100
	}
	return p
}

// Remaining is the amount still needed, never negative.
func (g Goal) Remaining() Money {
	r := g.TargetAmount.Sub(g.CurrentAmount)
	if r.Cents < 0 {
		return Money{}
	}
	return r
}

func (g Goal) DaysRemaining(now time.Time) int {
	d := DateOf(now).DaysUntil(g.TargetDate)
	if d < 0 {
		return 0
	}
	return d
}

// IsOnTrack compares progress with the share of time elapsed between
// creation and the target date.
func (g Goal) IsOnTrack(now time.Time) bool {
	if g.IsCompleted {
		return true
	}
	start := DateOf(g.CreatedAt)
	total := start.DaysUntil(g.TargetDate)
	if total <= 0 {
		return false
	}
	elapsed := start.DaysUntil(DateOf(now))
	if elapsed <= 0 {
		return true
	}
	if elapsed >= total {
		return false
	}
	return g.Progress() >= float64(elapsed)/float64(total)
}

// Contribute adds amount to the goal and flags it completed once the target is reached.
func (g *Goal) Contribute(amount Money) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	g.CurrentAmount = g.CurrentAmount.Add(amount)
	g.IsCompleted = g.CurrentAmount.Cents >= g.TargetAmount.Cents
	return nil
}

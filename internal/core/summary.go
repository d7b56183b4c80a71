package core

// CategoryAmount is an amount aggregated by category.
type CategoryAmount struct {
	CategoryID int64   `json:"category_id"`
	Name       string  `json:"name"`
	Icon       string  `json:"icon,omitempty"`
	Color      string  `json:"color,omitempty"`
	Amount     Money   `json:"amount"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// MonthlyData is one month of the trend, labelled "Jan 2006".
type MonthlyData struct {
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Label    string `json:"label"`
	Income   Money  `json:"income"`
	Expenses Money  `json:"expenses"`
	Savings  Money  `json:"savings"`
}

type FinancialSummary struct {
	TotalIncome       Money            `json:"total_income"`
	TotalExpenses     Money            `json:"total_expenses"`
	NetAmount         Money            `json:"net_amount"`
	SavingsRate       float64          `json:"savings_rate"`
	IsHealthy         bool             `json:"is_healthy"`
	CategoryBreakdown []CategoryAmount `json:"category_breakdown"`
	TopCategories     []CategoryAmount `json:"top_categories"`
	MonthlyTrend      []MonthlyData    `json:"monthly_trend"`
}

type BudgetProgress struct {
	Budget        Budget  `json:"budget"`
	CategoryName  string  `json:"category_name"`
	Spent         Money   `json:"spent"`
	Remaining     Money   `json:"remaining"`
	Percentage    float64 `json:"percentage"`
	IsOverBudget  bool    `json:"is_over_budget"`
	IsExpired     bool    `json:"is_expired"`
	DaysRemaining int     `json:"days_remaining"`
}

type GoalProgress struct {
	Goal          Goal    `json:"goal"`
	Percentage    float64 `json:"percentage"`
	Remaining     Money   `json:"remaining"`
	DaysRemaining int     `json:"days_remaining"`
	OnTrack       bool    `json:"on_track"`
}

type InsightLevel string

const (
	InsightSuccess InsightLevel = "success"
	InsightInfo    InsightLevel = "info"
	InsightWarning InsightLevel = "warning"
)

type Insight struct {
	Level   InsightLevel `json:"level"`
	Title   string       `json:"title"`
	Message string       `json:"message"`
}

package core

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"time"
)

const (
	CategoryExpense  CategoryType = "EXPENSE"
	CategoryIncome   CategoryType = "INCOME"
	CategoryTransfer CategoryType = "TRANSFER"
)

const (
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
	PeriodCustom  BudgetPeriod = "custom"
)

const (
	ExportPending  ExportStatus = "pending"
	ExportClaimed  ExportStatus = "exporting"
	ExportExported ExportStatus = "exported"
	ExportFailed   ExportStatus = "error"
)

const (
	MaxDescriptionLen  = 200
	MaxCategoryNameLen = 60
	MaxNameLen         = 100
	dateLayout         = "2006-01-02"
)

type (
	CategoryType string
	BudgetPeriod string
	ExportStatus string

	// Date is a calendar day. The time component is always midnight UTC.
	Date struct {
		time.Time
	}

	Category struct {
		ID            int64        `json:"id"`
		Name          string       `json:"name"`
		Icon          string       `json:"icon,omitempty"`
		Color         string       `json:"color,omitempty"`
		Type          CategoryType `json:"type"`
		IsDefault     bool         `json:"is_default"`
		IsActive      bool         `json:"is_active"`
		MonthlyBudget Money        `json:"monthly_budget"`
	}

	Expense struct {
		ID           int64        `json:"id"`
		Amount       Money        `json:"amount"`
		CategoryID   int64        `json:"category_id"`
		Date         Date         `json:"date"`
		Description  string       `json:"description"`
		Tags         []string     `json:"tags"`
		CreatedAt    time.Time    `json:"created_at"`
		UpdatedAt    time.Time    `json:"updated_at"`
		ExportStatus ExportStatus `json:"export_status"`
	}

	// Budget caps spending over an inclusive date window. A nil CategoryID
	// means the budget covers every category.
	Budget struct {
		ID          int64        `json:"id"`
		Name        string       `json:"name"`
		Amount      Money        `json:"amount"`
		Spent       Money        `json:"spent"`
		CategoryID  *int64       `json:"category_id"`
		StartDate   Date         `json:"start_date"`
		EndDate     Date         `json:"end_date"`
		IsRecurring bool         `json:"is_recurring"`
		Period      BudgetPeriod `json:"period"`
		RolledOver  bool         `json:"rolled_over"`
	}

	// Goal is a savings target. Goals are not persisted.
	Goal struct {
		ID            int64     `json:"id"`
		Name          string    `json:"name"`
		TargetAmount  Money     `json:"target_amount"`
		CurrentAmount Money     `json:"current_amount"`
		TargetDate    Date      `json:"target_date"`
		CategoryID    *int64    `json:"category_id,omitempty"`
		Description   string    `json:"description,omitempty"`
		IsCompleted   bool      `json:"is_completed"`
		CreatedAt     time.Time `json:"created_at"`
	}
)

// ErrNotFound is returned by stores when a record does not exist.
var ErrNotFound = errors.New("record not found")

var (
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidDateRange    = errors.New("end date before start date")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrNegativeAmount      = errors.New("amount cannot be negative")
	ErrEmptyDescription    = errors.New("empty description")
	ErrDescriptionTooLong  = errors.New("description too long (max 200 characters)")
	ErrEmptyName           = errors.New("empty name")
	ErrNameTooLong         = errors.New("name too long")
	ErrMissingCategory     = errors.New("missing category")
	ErrInvalidCategoryType = errors.New("invalid category type")
	ErrInvalidColor        = errors.New("invalid color, expected #RRGGBB or #AARRGGBB")
	ErrInvalidPeriod       = errors.New("invalid budget period")
)

var validationErrors = []error{
	ErrInvalidDate, ErrInvalidDateRange, ErrInvalidAmount, ErrNegativeAmount,
	ErrEmptyDescription, ErrDescriptionTooLong, ErrEmptyName, ErrNameTooLong,
	ErrMissingCategory, ErrInvalidCategoryType, ErrInvalidColor, ErrInvalidPeriod,
}

// IsValidation reports whether err wraps one of the domain validation errors.
func IsValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

var colorPattern = regexp.MustCompile(`^#([0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the number of whole days from d to other. Negative when other is earlier.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return ErrInvalidDate
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthRange returns the first and last day of the given month.
func MonthRange(year int, month time.Month) (Date, Date) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	return Date{Time: first}, Date{Time: last}
}

func (t CategoryType) IsValid() bool {
	switch t {
	case CategoryExpense, CategoryIncome, CategoryTransfer:
		return true
	}
	return false
}

func (p BudgetPeriod) IsValid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodCustom:
		return true
	}
	return false
}

// DisplayName returns the trimmed name, or a placeholder when blank.
func (c Category) DisplayName() string {
	if n := strings.TrimSpace(c.Name); n != "" {
		return n
	}
	return "Unnamed Category"
}

func (c Category) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxCategoryNameLen {
		return ErrNameTooLong
	}
	if !c.Type.IsValid() {
		return ErrInvalidCategoryType
	}
	if c.Color != "" && !colorPattern.MatchString(c.Color) {
		return ErrInvalidColor
	}
	if c.MonthlyBudget.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if e.CategoryID <= 0 {
		return ErrMissingCategory
	}
	return nil
}

func (b Budget) Validate() error {
	name := strings.TrimSpace(b.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if b.Spent.Cents < 0 {
		return ErrNegativeAmount
	}
	if err := b.StartDate.Validate(); err != nil {
		return err
	}
	if err := b.EndDate.Validate(); err != nil {
		return err
	}
	if b.EndDate.Before(b.StartDate.Time) {
		return ErrInvalidDateRange
	}
	if !b.Period.IsValid() {
		return ErrInvalidPeriod
	}
	return nil
}

func (g Goal) Validate() error {
	name := strings.TrimSpace(g.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	if err := g.TargetAmount.Validate(); err != nil {
		return err
	}
	if g.CurrentAmount.Cents < 0 {
		return ErrNegativeAmount
	}
	if len(g.Description) > MaxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return g.TargetDate.Validate()
}

// NormalizeTags trims tags, drops blanks and duplicates, and keeps the first-seen order.
// Commas are removed since tags are stored comma-separated.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(strings.ReplaceAll(t, ",", " "))
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

// JoinTags encodes tags for storage.
func JoinTags(tags []string) string {
	return strings.Join(NormalizeTags(tags), ",")
}

// SplitTags decodes stored tags.
func SplitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return []string{}
	}
	return NormalizeTags(strings.Split(s, ","))
}

// Package goals keeps savings goals in memory. Goals are not persisted and
// are lost on restart.
package goals

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"aurabudget/internal/core"
)

type Options struct {
	// Now is the clock used for CreatedAt and default target dates.
	Now func() time.Time
	// SeedDefaults fills the store with sample goals the first time it is listed empty.
	SeedDefaults bool
}

type Store struct {
	mu     sync.Mutex
	items  map[int64]core.Goal
	nextID int64
	now    func() time.Time
	seed   bool
	seeded bool
}

func New(opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		items: make(map[int64]core.Goal),
		now:   now,
		seed:  opts.SeedDefaults,
	}
}

// DefaultGoals returns the sample goals, with target dates relative to now.
func DefaultGoals(now time.Time) []core.Goal {
	today := core.DateOf(now)
	at := func(months int) core.Date {
		return core.Date{Time: today.AddDate(0, months, 0)}
	}
	return []core.Goal{
		{
			Name:          "Emergency Fund",
			TargetAmount:  core.Money{Cents: 1000000},
			CurrentAmount: core.Money{Cents: 250000},
			TargetDate:    at(12),
			Description:   "Six months of essential expenses",
		},
		{
			Name:          "Vacation Fund",
			TargetAmount:  core.Money{Cents: 500000},
			CurrentAmount: core.Money{Cents: 120000},
			TargetDate:    at(8),
			Description:   "Summer trip",
		},
		{
			Name:          "New Car",
			TargetAmount:  core.Money{Cents: 2500000},
			CurrentAmount: core.Money{Cents: 800000},
			TargetDate:    at(18),
			Description:   "Down payment for a new car",
		},
	}
}

// insertLocked assigns an id and stores g. Caller holds s.mu.
func (s *Store) insertLocked(g core.Goal) core.Goal {
	s.nextID++
	g.ID = s.nextID
	g.Name = strings.TrimSpace(g.Name)
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now().UTC()
	}
	g.IsCompleted = g.IsCompleted || g.CurrentAmount.Cents >= g.TargetAmount.Cents
	s.items[g.ID] = g
	return g
}

// List returns goals ordered by target date, then id.
func (s *Store) List(_ context.Context) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seed && !s.seeded && len(s.items) == 0 {
		for _, g := range DefaultGoals(s.now()) {
			s.insertLocked(g)
		}
	}
	s.seeded = true

	out := make([]core.Goal, 0, len(s.items))
	for _, g := range s.items {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TargetDate.Equal(out[j].TargetDate.Time) {
			return out[i].TargetDate.Before(out[j].TargetDate.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) Get(_ context.Context, id int64) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.items[id]
	if !ok {
		return core.Goal{}, core.ErrNotFound
	}
	return g, nil
}

func (s *Store) Create(_ context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// An explicit create counts as the first population; sample goals are not added afterwards.
	s.seeded = true
	return s.insertLocked(g), nil
}

// Update replaces a goal's editable fields. CreatedAt is preserved.
func (s *Store) Update(_ context.Context, g core.Goal) (core.Goal, error) {
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.items[g.ID]
	if !ok {
		return core.Goal{}, core.ErrNotFound
	}
	g.Name = strings.TrimSpace(g.Name)
	g.CreatedAt = old.CreatedAt
	g.IsCompleted = g.CurrentAmount.Cents >= g.TargetAmount.Cents
	s.items[g.ID] = g
	return g, nil
}

func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

// AddMoney contributes amount to a goal.
func (s *Store) AddMoney(_ context.Context, id int64, amount core.Money) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.items[id]
	if !ok {
		return core.Goal{}, core.ErrNotFound
	}
	if err := g.Contribute(amount); err != nil {
		return core.Goal{}, err
	}
	s.items[id] = g
	return g, nil
}

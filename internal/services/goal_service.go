package services

import (
	"context"

	"aurabudget/internal/amqp"
	"aurabudget/internal/core"
	"aurabudget/internal/goals"
	applog "aurabudget/internal/log"
)

// GoalService exposes the in-memory goal store and announces its changes.
type GoalService struct {
	store  *goals.Store
	events *Events
	logger *applog.Logger
}

func NewGoalService(store *goals.Store, events *Events, logger *applog.Logger) *GoalService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &GoalService{
		store:  store,
		events: events,
		logger: logger.WithComponent(applog.ComponentGoal),
	}
}

func (s *GoalService) List(ctx context.Context) ([]core.Goal, error) {
	return s.store.List(ctx)
}

func (s *GoalService) Get(ctx context.Context, id int64) (core.Goal, error) {
	return s.store.Get(ctx, id)
}

func (s *GoalService) Create(ctx context.Context, g core.Goal) (core.Goal, error) {
	saved, err := s.store.Create(ctx, g)
	if err != nil {
		return core.Goal{}, err
	}
	s.logger.InfoContext(ctx, "Goal created", applog.FieldEntityID, saved.ID, "name", saved.Name)
	s.events.changed(ctx, amqp.EntityGoal, amqp.KindCreated, saved.ID)
	return saved, nil
}

func (s *GoalService) Update(ctx context.Context, g core.Goal) (core.Goal, error) {
	saved, err := s.store.Update(ctx, g)
	if err != nil {
		return core.Goal{}, err
	}
	s.logger.InfoContext(ctx, "Goal updated", applog.FieldEntityID, saved.ID)
	s.events.changed(ctx, amqp.EntityGoal, amqp.KindUpdated, saved.ID)
	return saved, nil
}

func (s *GoalService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Goal deleted", applog.FieldEntityID, id)
	s.events.changed(ctx, amqp.EntityGoal, amqp.KindDeleted, id)
	return nil
}

// AddMoney contributes amount toward the goal.
func (s *GoalService) AddMoney(ctx context.Context, id int64, amount core.Money) (core.Goal, error) {
	g, err := s.store.AddMoney(ctx, id, amount)
	if err != nil {
		return core.Goal{}, err
	}
	s.logger.InfoContext(ctx, "Goal contribution added",
		applog.FieldEntityID, id,
		applog.FieldAmountCents, amount.Cents,
		"completed", g.IsCompleted)
	s.events.changed(ctx, amqp.EntityGoal, amqp.KindContributed, id)
	return g, nil
}

// Package backend opens the stores and outbound adapters a process runs on,
// as selected by configuration.
package backend

import (
	"errors"

	"aurabudget/internal/amqp"
	"aurabudget/internal/services"
	"aurabudget/internal/storage"
)

// CleanupFunc releases a resource opened by the factory.
type CleanupFunc func() error

// Backend holds the opened resources. AMQP is nil when change events are disabled.
type Backend struct {
	Repo *storage.SQLiteRepository
	AMQP *amqp.Client

	cleanup []CleanupFunc
}

// Publisher returns the change publisher, or nil when AMQP is disabled.
func (b *Backend) Publisher() services.Publisher {
	if b.AMQP == nil {
		return nil
	}
	return b.AMQP
}

// Close releases resources in reverse order of opening.
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.cleanup) - 1; i >= 0; i-- {
		if err := b.cleanup[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.cleanup = nil
	return errors.Join(errs...)
}

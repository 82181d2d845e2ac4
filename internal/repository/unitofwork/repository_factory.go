package unitofwork

import "context"

// RepositoryFactory hands out units of work over the shared connection pool.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}

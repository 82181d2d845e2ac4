package unitofwork

import (
	"context"

	"owlynn-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ConversationRepository() contract.ConversationRepository
	DocumentRepository() contract.DocumentRepository
	VectorEntryRepository() contract.VectorEntryRepository
}

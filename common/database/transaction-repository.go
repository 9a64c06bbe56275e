package database

import (
	"context"

	apperrors "github.com/burakmert236/courtside/common/errors"
)

type TransactionRepository interface {
	Execute(ctx context.Context, transactionBuilder *TransactionBuilder) *apperrors.AppError
}

type transactionRepo struct {
	db *DynamoDBClient
}

func NewTransactionRepository(db *DynamoDBClient) TransactionRepository {
	return &transactionRepo{db: db}
}

func (r *transactionRepo) Execute(ctx context.Context, transactionBuilder *TransactionBuilder) *apperrors.AppError {
	if err := transactionBuilder.Execute(ctx, r.db.Client); err != nil {
		return apperrors.Wrap(err, apperrors.CodeTransactionError, "failed to execute transaction")
	}
	return nil
}

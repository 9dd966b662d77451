package repository

import (
	"context"

	"gorm.io/gorm"
)

// TxManager runs a function inside a database transaction. The engine uses
// it so that a state update and its history append commit or roll back
// together.
type TxManager struct {
	db *gorm.DB
}

// NewTxManager creates a TxManager.
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Transaction runs fn inside one transaction, committing on nil and rolling
// back on error.
func (m *TxManager) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}

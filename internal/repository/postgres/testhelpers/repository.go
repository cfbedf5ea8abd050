package testhelpers

import (
	"github.com/forest-density-service/internal/domain/repository"
	"github.com/forest-density-service/internal/repository/postgres"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// NewDBForTest creates a postgres.DB with test database and logger
func NewDBForTest(db *sqlx.DB, logger *zap.Logger) *postgres.DB {
	return postgres.NewDBForTest(db, logger)
}

// NewForestDensityRepositoryForTest creates a forest density repository with test database and logger
func NewForestDensityRepositoryForTest(db *sqlx.DB, logger *zap.Logger) repository.ForestDensityRepository {
	return postgres.NewForestDensityRepository(NewDBForTest(db, logger), logger)
}

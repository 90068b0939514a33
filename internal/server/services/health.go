package services

import (
	"context"
	"database/sql"
)

// HealthService checks that the database answers queries.
type HealthService struct {
	db *sql.DB
}

func NewHealthService(db *sql.DB) *HealthService {
	return &HealthService{db: db}
}

func (s *HealthService) Check(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return upstream("database healthcheck", err)
	}
	return nil
}

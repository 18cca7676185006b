package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edusuite/presence-api/internal/models"
)

// AcademicYearRepository persists academic years. Years are append-only.
type AcademicYearRepository struct {
	db *sqlx.DB
}

// NewAcademicYearRepository constructs the repository.
func NewAcademicYearRepository(db *sqlx.DB) *AcademicYearRepository {
	return &AcademicYearRepository{db: db}
}

// Create inserts a new academic year.
func (r *AcademicYearRepository) Create(ctx context.Context, year *models.AcademicYear) (*models.AcademicYear, error) {
	if year.ID == "" {
		year.ID = uuid.NewString()
	}
	if year.CreatedAt.IsZero() {
		year.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO academic_years (id, label, created_at) VALUES ($1, $2, $3)
RETURNING id, label, created_at`
	var stored models.AcademicYear
	if err := r.db.GetContext(ctx, &stored, query, year.ID, year.Label, year.CreatedAt); err != nil {
		return nil, fmt.Errorf("create academic year: %w", err)
	}
	return &stored, nil
}

// List returns all academic years, most recent label first.
func (r *AcademicYearRepository) List(ctx context.Context) ([]models.AcademicYear, error) {
	var years []models.AcademicYear
	if err := r.db.SelectContext(ctx, &years, `SELECT id, label, created_at FROM academic_years ORDER BY label DESC`); err != nil {
		return nil, fmt.Errorf("list academic years: %w", err)
	}
	return years, nil
}

// FindByID fetches one academic year.
func (r *AcademicYearRepository) FindByID(ctx context.Context, id string) (*models.AcademicYear, error) {
	var year models.AcademicYear
	if err := r.db.GetContext(ctx, &year, `SELECT id, label, created_at FROM academic_years WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &year, nil
}

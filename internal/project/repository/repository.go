package repository

import (
	"context"

	"github.com/MrSCAN/hobbyist-haven-api/internal/project/domain"
)

// Repository defines persistence for projects and their owned stages.
type Repository interface {
	List(ctx context.Context) ([]*domain.Project, error)
	// GetByID returns the project with author and stages loaded, or nil if
	// not found.
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	// Create persists a new project and its stages in one transaction and
	// returns the stored record.
	Create(ctx context.Context, authorID string, fields *domain.Fields, stages []domain.StageSpec) (*domain.Project, error)
	// UpdateWithStages updates the project's fields and replaces its entire
	// stage set with the submitted list in one transaction: every existing
	// stage is deleted and each spec is recreated with a fresh ID. An empty
	// list leaves the project with zero stages. Returns nil if the project
	// does not exist.
	UpdateWithStages(ctx context.Context, id string, fields *domain.Fields, stages []domain.StageSpec) (*domain.Project, error)
	// Delete removes the project and, via the store's cascade, its stages.
	// Returns false if the project does not exist.
	Delete(ctx context.Context, id string) (bool, error)
}

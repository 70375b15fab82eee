package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrSCAN/hobbyist-haven-api/internal/project/domain"
	userdomain "github.com/MrSCAN/hobbyist-haven-api/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a project repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const projectColumns = `p.id, p.title, p.description, p.tech_stack, p.repo_urls, p.image_url,
	p.documentation, p.youtube_url, p.author_id, p.created_at, p.updated_at,
	u.id, u.email, u.name, u.role, u.created_at, u.updated_at`

const projectSelect = `SELECT ` + projectColumns + `
	FROM projects p JOIN users u ON u.id = p.author_id`

// List returns all projects with author and stages loaded, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, projectSelect+` ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*domain.Project
	byID := make(map[string]*domain.Project)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return projects, nil
	}

	stageRows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, name, description, status, created_at FROM stages ORDER BY created_at`,
	)
	if err != nil {
		return nil, err
	}
	defer stageRows.Close()
	for stageRows.Next() {
		var s domain.Stage
		if err := stageRows.Scan(&s.ID, &s.ProjectID, &s.Name, &s.Description, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		if p, ok := byID[s.ProjectID]; ok {
			p.Stages = append(p.Stages, s)
		}
	}
	return projects, stageRows.Err()
}

// GetByID returns the project with author and stages loaded, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	row := r.db.QueryRowContext(ctx, projectSelect+` WHERE p.id = $1`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	stageRows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, name, description, status, created_at
		 FROM stages WHERE project_id = $1 ORDER BY created_at`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer stageRows.Close()
	for stageRows.Next() {
		var s domain.Stage
		if err := stageRows.Scan(&s.ID, &s.ProjectID, &s.Name, &s.Description, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		p.Stages = append(p.Stages, s)
	}
	return p, stageRows.Err()
}

// Create persists a new project and its stages in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, authorID string, fields *domain.Fields, stages []domain.StageSpec) (*domain.Project, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	techStack, repoURLs, err := marshalLists(fields)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO projects (id, title, description, tech_stack, repo_urls, image_url,
		 documentation, youtube_url, author_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		id, fields.Title, fields.Description, techStack, repoURLs, fields.ImageURL,
		fields.Documentation, fields.YoutubeURL, authorID, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	if err := insertStages(ctx, tx, id, stages, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// UpdateWithStages updates the project's fields and replaces its stage set in
// one transaction (delete all, recreate from the submitted list). Either the
// whole replacement and the field update take effect or neither does.
func (r *PostgresRepository) UpdateWithStages(ctx context.Context, id string, fields *domain.Fields, stages []domain.StageSpec) (*domain.Project, error) {
	now := time.Now().UTC()
	techStack, repoURLs, err := marshalLists(fields)
	if err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE projects SET title = $2, description = $3, tech_stack = $4, repo_urls = $5,
		 image_url = $6, documentation = $7, youtube_url = $8, updated_at = $9
		 WHERE id = $1`,
		id, fields.Title, fields.Description, techStack, repoURLs,
		fields.ImageURL, fields.Documentation, fields.YoutubeURL, now,
	)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM stages WHERE project_id = $1`, id); err != nil {
		return nil, fmt.Errorf("delete stages: %w", err)
	}
	if err := insertStages(ctx, tx, id, stages, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// Delete removes the project; stages are removed by the ON DELETE CASCADE
// constraint. Returns false if no project with that id exists.
func (r *PostgresRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func insertStages(ctx context.Context, tx *sql.Tx, projectID string, stages []domain.StageSpec, now time.Time) error {
	for _, spec := range stages {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO stages (id, project_id, name, description, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New().String(), projectID, spec.Name, spec.Description, spec.Status, now,
		)
		if err != nil {
			return fmt.Errorf("insert stage: %w", err)
		}
	}
	return nil
}

// marshalLists encodes the two string-list fields as JSONB column values.
// nil slices encode as empty lists.
func marshalLists(fields *domain.Fields) ([]byte, []byte, error) {
	techStack, err := json.Marshal(emptyIfNil(fields.TechStack))
	if err != nil {
		return nil, nil, err
	}
	repoURLs, err := json.Marshal(emptyIfNil(fields.RepoURLs))
	if err != nil {
		return nil, nil, err
	}
	return techStack, repoURLs, nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	p := &domain.Project{Author: &userdomain.User{}}
	var techStack, repoURLs []byte
	var youtubeURL sql.NullString
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &techStack, &repoURLs, &p.ImageURL,
		&p.Documentation, &youtubeURL, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt,
		&p.Author.ID, &p.Author.Email, &p.Author.Name, &p.Author.Role,
		&p.Author.CreatedAt, &p.Author.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(techStack, &p.TechStack); err != nil {
		return nil, fmt.Errorf("decode tech_stack: %w", err)
	}
	if err := json.Unmarshal(repoURLs, &p.RepoURLs); err != nil {
		return nil, fmt.Errorf("decode repo_urls: %w", err)
	}
	if youtubeURL.Valid {
		p.YoutubeURL = &youtubeURL.String
	}
	return p, nil
}

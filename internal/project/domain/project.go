package domain

import (
	"errors"
	"time"

	userdomain "github.com/MrSCAN/hobbyist-haven-api/internal/user/domain"
)

// Project is a user-owned showcase project with an owned set of stage records.
type Project struct {
	ID            string
	Title         string
	Description   string
	TechStack     []string
	RepoURLs      []string
	ImageURL      string
	Documentation string
	YoutubeURL    *string
	AuthorID      string
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Author and Stages are populated by repository reads that include them.
	Author *userdomain.User
	Stages []Stage
}

// Stage is one child record owned by a project. Stage identity is not stable
// across updates: rewriting a project's stage list recreates every stage with
// a fresh ID.
type Stage struct {
	ID          string
	ProjectID   string
	Name        string
	Description string
	Status      string
	CreatedAt   time.Time
}

// StageSpec is a submitted stage specification; IDs are assigned at creation.
type StageSpec struct {
	Name        string
	Description string
	Status      string
}

// Fields holds the writable project fields for create and update.
type Fields struct {
	Title         string
	Description   string
	TechStack     []string
	RepoURLs      []string
	ImageURL      string
	Documentation string
	YoutubeURL    *string
}

// Validate validates the writable fields. Returns an error describing the first validation failure.
func (f *Fields) Validate() error {
	if f.Title == "" || f.Description == "" {
		return errors.New("title and description are required")
	}
	return nil
}

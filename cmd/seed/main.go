// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev admin (admin@example.com) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/MrSCAN/hobbyist-haven-api/internal/config"
	"github.com/MrSCAN/hobbyist-haven-api/internal/db"
	identitydomain "github.com/MrSCAN/hobbyist-haven-api/internal/identity/domain"
	identityrepo "github.com/MrSCAN/hobbyist-haven-api/internal/identity/repository"
	projectdomain "github.com/MrSCAN/hobbyist-haven-api/internal/project/domain"
	projectrepo "github.com/MrSCAN/hobbyist-haven-api/internal/project/repository"
	"github.com/MrSCAN/hobbyist-haven-api/internal/security"
	userdomain "github.com/MrSCAN/hobbyist-haven-api/internal/user/domain"
	userrepo "github.com/MrSCAN/hobbyist-haven-api/internal/user/repository"
)

const (
	adminEmail    = "admin@example.com"
	makerEmail    = "maker@example.com"
	seedPassword  = "password123"
	adminUserID   = "seed-admin-001"
	makerUserID   = "seed-maker-001"
	adminIdentity = "seed-identity-001"
	makerIdentity = "seed-identity-002"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	identities := identityrepo.NewPostgresRepository(conn)
	projects := projectrepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatalf("lookup admin: %v", err)
	}
	if existing != nil {
		fmt.Println("seed data already present, nothing to do")
		return
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	hash, err := hasher.Hash([]byte(seedPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	seedUsers := []struct {
		id, email, name string
		role            userdomain.Role
		identityID      string
	}{
		{adminUserID, adminEmail, "Dev Admin", userdomain.RoleAdmin, adminIdentity},
		{makerUserID, makerEmail, "Dev Maker", userdomain.RoleUser, makerIdentity},
	}
	for _, su := range seedUsers {
		u := &userdomain.User{
			ID: su.id, Email: su.email, Name: su.name, Role: su.role,
			CreatedAt: now, UpdatedAt: now,
		}
		ident := &identitydomain.Identity{
			ID:           su.identityID,
			UserID:       su.id,
			Provider:     identitydomain.IdentityProviderLocal,
			ProviderID:   su.email,
			PasswordHash: hash,
			CreatedAt:    now,
		}
		if err := identities.CreateUserWithIdentity(ctx, u, ident); err != nil {
			log.Fatalf("create user %s: %v", su.email, err)
		}
	}

	youtube := "https://youtu.be/dQw4w9WgXcQ"
	fields := &projectdomain.Fields{
		Title:         "Balcony Weather Station",
		Description:   "Solar powered ESP32 weather station with a Go ingestion backend.",
		TechStack:     []string{"go", "esp32", "postgres"},
		RepoURLs:      []string{"https://github.com/example/weather-station"},
		ImageURL:      "https://example.com/weather-station.jpg",
		Documentation: "Readings are pushed every 5 minutes over MQTT.",
		YoutubeURL:    &youtube,
	}
	stages := []projectdomain.StageSpec{
		{Name: "Prototype", Description: "Breadboard build", Status: "COMPLETED"},
		{Name: "Enclosure", Description: "3D printed case", Status: "IN_PROGRESS"},
		{Name: "Solar", Description: "Battery and panel sizing", Status: "PLANNED"},
	}
	p, err := projects.Create(ctx, makerUserID, fields, stages)
	if err != nil {
		log.Fatalf("create project: %v", err)
	}

	fmt.Printf("seeded users %s (admin) and %s, project %s\n", adminEmail, makerEmail, p.ID)
}

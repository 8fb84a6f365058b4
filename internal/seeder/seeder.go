package seeder

import (
	"context"
	"log"

	"github.com/essenca/essenca-gateway/internal/auth"
	"github.com/essenca/essenca-gateway/internal/dispatch"
	"github.com/essenca/essenca-gateway/internal/settings"
)

const (
	AdminUsername = "admin"
	AdminEmail    = "admin@example.com"
	AdminPassword = "essenca-admin"
)

// SeedAdmin creates the development admin account. Admins are unmetered so
// no balance allocation is needed.
func SeedAdmin(ctx context.Context, store auth.Store) {
	hash, err := auth.HashPassword(AdminPassword)
	if err != nil {
		log.Printf("[Seeder] failed to hash admin password: %v", err)
		return
	}

	user := &auth.User{
		Username:     AdminUsername,
		Email:        AdminEmail,
		PasswordHash: hash,
		Role:         auth.RoleAdmin,
	}
	if err := store.Create(ctx, user); err != nil {
		log.Printf("[Seeder] admin user may already exist, skipping: %v", err)
		return
	}
	log.Printf("[Seeder] Admin user created successfully")
	log.Printf("[Seeder] Username: %s", AdminUsername)
	log.Printf("[Seeder] Password: %s", AdminPassword)
}

// SeedControls writes a starting cost table when none is configured yet.
func SeedControls(ctx context.Context, store settings.Store) {
	controls := &settings.Controls{
		InitialTokens: settings.DefaultInitialTokens,
		Costs: map[string]int{
			"summary":                       2,
			"key-takeaway":                  1,
			"chat":                          1,
			dispatch.CostKeyLinkedInPersona: 3,
			dispatch.CostKeyLinkedInGeneric: 2,
		},
	}
	if err := store.SaveControls(ctx, controls); err != nil {
		log.Printf("[Seeder] failed to seed controls: %v", err)
		return
	}
	log.Printf("[Seeder] Default controls seeded")
}

package docstore

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/geocoder89/gatherdesk/internal/config"
	"github.com/geocoder89/gatherdesk/internal/domain/profile"
	"github.com/geocoder89/gatherdesk/internal/security"
)

// EnsureAdminProfile seeds the admin identity from config. This is the only
// path that sets isAdmin; it runs at boot, outside any request handler.
func EnsureAdminProfile(ctx context.Context, profiles *ProfilesRepo, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	existing, err := profiles.GetByEmail(ctx, cfg.AdminEmail)
	if err == nil {
		if existing.IsAdmin {
			return nil
		}
		return profiles.SetAdmin(ctx, existing.UserID, true)
	}
	if !errors.Is(err, profile.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	p := profile.New(uuid.NewString(), cfg.AdminEmail)
	p.PasswordHash = hash
	p.IsAdmin = true

	return profiles.Create(ctx, p)
}

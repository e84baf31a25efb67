// Package db provides the database driver factory.
package db

import (
	"github.com/pkg/errors"

	"github.com/orbitview/orbitview/internal/profile"
	"github.com/orbitview/orbitview/store"
	"github.com/orbitview/orbitview/store/db/postgres"
	"github.com/orbitview/orbitview/store/db/sqlite"
)

// NewDBDriver creates a new db driver based on profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		return sqlite.NewDB(profile)
	case "postgres":
		return postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver: %s", profile.Driver)
	}
}

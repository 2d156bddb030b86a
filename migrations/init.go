package migrations

import (
	"io/fs"

	invites "github.com/goliatone/go-invites"
)

func init() {
	coreFS, err := fs.Sub(invites.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return
	}
	Register(coreFS)
}

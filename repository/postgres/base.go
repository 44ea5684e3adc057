package postgres

import (
	sq "github.com/Masterminds/squirrel"

	"github.com/omni/tokenbridge-antelope/db"
)

// basePostgresRepo is shared by the per-table repositories, which are
// declared as named types over it.
type basePostgresRepo struct {
	table string
	db    db.Queryer
	psql  sq.StatementBuilderType
}

func newBasePostgresRepo(table string, q db.Queryer) *basePostgresRepo {
	return &basePostgresRepo{
		table: table,
		db:    q,
		psql:  sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

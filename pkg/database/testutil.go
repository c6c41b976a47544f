package database

import (
	pgxmock "github.com/pashagolub/pgxmock/v4"
)

// TB is the subset of testing.TB used by NewMockPool. Declaring it here keeps
// the testing package out of production builds.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	Cleanup(func())
}

// NewMockPool creates a pgxmock pool for repository tests. The mock satisfies
// the same query interface as *pgxpool.Pool. Cleanup closes the pool and fails
// the test when an expected query never ran.
func NewMockPool(tb TB) pgxmock.PgxPoolIface {
	tb.Helper()

	pool, err := pgxmock.NewPool()
	if err != nil {
		tb.Fatalf("create mock pool: %v", err)
	}
	tb.Cleanup(func() {
		if err := pool.ExpectationsWereMet(); err != nil {
			tb.Errorf("unmet query expectations: %v", err)
		}
		pool.Close()
	})
	return pool
}

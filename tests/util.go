package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // register postgres driver
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/trezcool/engagement/core/user"
	"github.com/trezcool/engagement/storage/database"
)

const postgresImage = "postgres:16-alpine"

// PrepareDB starts a throwaway postgres container and returns a migrated connection to it.
// The test is skipped with -short or when no container provider is available.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	ctr, err := postgres.Run(ctx, postgresImage,
		postgres.WithDatabase("engagement_test"),
		postgres.WithUsername("engagement"),
		postgres.WithPassword("engagement"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("PrepareDB() failed to start postgres: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(db.DB); err != nil {
		t.Fatalf("PrepareDB() failed to migrate: %v", err)
	}
	return db
}

const insertUser = `INSERT INTO users (first_name, last_name, email) VALUES ($1, $2, $3) RETURNING id`

// CreateUser inserts a user and returns it with its id.
func CreateUser(t *testing.T, db *sqlx.DB, firstName, lastName, email string) user.User {
	t.Helper()
	usr := user.User{FirstName: firstName, LastName: lastName, Email: email}
	if err := db.QueryRowx(insertUser, firstName, lastName, email).Scan(&usr.ID); err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

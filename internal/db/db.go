package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		// Directory tables are owned by the wider platform; created here so
		// the service also runs standalone in development.
		`CREATE TABLE IF NOT EXISTS users (
            id BIGSERIAL PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            role TEXT NOT NULL CHECK (role IN ('tenant', 'landlord')),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS properties (
            id BIGSERIAL PRIMARY KEY,
            landlord_id BIGINT NOT NULL REFERENCES users(id),
            title TEXT NOT NULL,
            address TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS property_tenants (
            property_id BIGINT NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
            tenant_id BIGINT NOT NULL REFERENCES users(id),
            PRIMARY KEY (property_id, tenant_id)
        );`,
		`CREATE TABLE IF NOT EXISTS threads (
            id BIGSERIAL PRIMARY KEY,
            tenant_id BIGINT NOT NULL,
            landlord_id BIGINT NOT NULL,
            property_id BIGINT,
            last_message_at TIMESTAMPTZ,
            last_message_preview VARCHAR(100) NOT NULL DEFAULT '',
            unread_for_tenant INT NOT NULL DEFAULT 0 CHECK (unread_for_tenant >= 0),
            unread_for_landlord INT NOT NULL DEFAULT 0 CHECK (unread_for_landlord >= 0),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		// The no-property thread and a per-property thread are distinct keys;
		// COALESCE folds NULL into a reserved value so the uniqueness
		// constraint covers both shapes.
		`CREATE UNIQUE INDEX IF NOT EXISTS threads_participants_key
            ON threads (tenant_id, landlord_id, COALESCE(property_id, 0));`,
		`CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            thread_id BIGINT NOT NULL REFERENCES threads(id) ON DELETE CASCADE,
            sender_id BIGINT NOT NULL,
            recipient_id BIGINT NOT NULL,
            body TEXT NOT NULL DEFAULT '',
            attachments TEXT[] NOT NULL DEFAULT '{}',
            delivered_at TIMESTAMPTZ,
            read_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS messages_thread_created_idx
            ON messages (thread_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS messages_recipient_unread_idx
            ON messages (recipient_id, read_at);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}

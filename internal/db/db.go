package db

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and makes sure the marketplace schema exists
func Init(dsn string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var err error
	Conn, err = pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(ctx); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	if err = EnsureSchema(ctx, Conn); err != nil {
		log.Fatalf("Unable to prepare schema: %v\n", err)
	}
}

// Close releases the pool opened by Init.
func Close() {
	if Conn != nil {
		Conn.Close()
	}
}

// EnsureSchema creates every table the marketplace needs. Each step is
// idempotent so it runs on every start.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	steps := []struct {
		name string
		fn   func(context.Context, *pgxpool.Pool) error
	}{
		{"users", ensureUsersTable},
		{"cars", ensureCarsTables},
		{"favorites", ensureViewerTables},
		{"transactions", ensureTransactionsTables},
		{"messaging", ensureMessagingTables},
	}
	for _, s := range steps {
		if err := s.fn(ctx, pool); err != nil {
			log.Printf("[db] ensure %s failed: %v", s.name, err)
			return err
		}
	}
	log.Printf("[db] schema ensured")
	return nil
}

func ensureUsersTable(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id BIGSERIAL PRIMARY KEY,
            first_name TEXT NOT NULL,
            last_name TEXT NOT NULL,
            username TEXT NOT NULL UNIQUE,
            email TEXT NOT NULL UNIQUE,
            password_hash TEXT NOT NULL,
            phone TEXT NOT NULL DEFAULT '',
            city TEXT NOT NULL DEFAULT '',
            country TEXT NOT NULL DEFAULT '',
            verified BOOLEAN NOT NULL DEFAULT FALSE,
            is_admin BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        ALTER TABLE users ADD COLUMN IF NOT EXISTS verification_requested BOOLEAN NOT NULL DEFAULT FALSE;
        CREATE UNIQUE INDEX IF NOT EXISTS uq_users_email_lower ON users (LOWER(email));
    `)
	return err
}

func ensureCarsTables(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS cars (
            id BIGSERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL REFERENCES users(id),
            price BIGINT NOT NULL,
            year INTEGER NOT NULL,
            mileage INTEGER NOT NULL,
            make TEXT NOT NULL,
            model TEXT NOT NULL,
            color TEXT NOT NULL,
            fuel TEXT NOT NULL,
            transmission TEXT NOT NULL,
            body_style TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            city TEXT NOT NULL DEFAULT '',
            country TEXT NOT NULL DEFAULT '',
            phone TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','completed')),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE INDEX IF NOT EXISTS idx_cars_user ON cars(user_id);
        CREATE INDEX IF NOT EXISTS idx_cars_status_created ON cars(status, created_at DESC);

        CREATE TABLE IF NOT EXISTS car_images (
            id BIGSERIAL PRIMARY KEY,
            car_id BIGINT NOT NULL REFERENCES cars(id),
            file_path TEXT NOT NULL
        );
        CREATE INDEX IF NOT EXISTS idx_car_images_car ON car_images(car_id);
    `)
	return err
}

func ensureViewerTables(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS favorites (
            user_id BIGINT NOT NULL REFERENCES users(id),
            car_id BIGINT NOT NULL REFERENCES cars(id),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (user_id, car_id)
        );

        CREATE TABLE IF NOT EXISTS recent_views (
            user_id BIGINT NOT NULL REFERENCES users(id),
            car_id BIGINT NOT NULL REFERENCES cars(id),
            viewed_at TIMESTAMPTZ NOT NULL,
            PRIMARY KEY (user_id, car_id)
        );
        CREATE INDEX IF NOT EXISTS idx_recent_views_user ON recent_views(user_id, viewed_at DESC);
    `)
	return err
}

// ensureTransactionsTables also adds the partial unique index that allows a
// single non-canceled transaction per car.
func ensureTransactionsTables(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS transactions (
            id BIGSERIAL PRIMARY KEY,
            car_id BIGINT NOT NULL REFERENCES cars(id),
            seller_id BIGINT NOT NULL REFERENCES users(id),
            buyer_id BIGINT NOT NULL REFERENCES users(id),
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','completed','canceled')),
            completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE INDEX IF NOT EXISTS idx_transactions_seller ON transactions(seller_id);
        CREATE INDEX IF NOT EXISTS idx_transactions_buyer ON transactions(buyer_id);
        CREATE UNIQUE INDEX IF NOT EXISTS uq_transactions_live_car ON transactions(car_id) WHERE status <> 'canceled';

        CREATE TABLE IF NOT EXISTS transaction_ratings (
            id BIGSERIAL PRIMARY KEY,
            transaction_id BIGINT NOT NULL UNIQUE REFERENCES transactions(id),
            seller_id BIGINT NOT NULL REFERENCES users(id),
            buyer_id BIGINT NOT NULL REFERENCES users(id),
            reliability INTEGER NOT NULL CHECK (reliability BETWEEN 1 AND 5),
            accuracy INTEGER NOT NULL CHECK (accuracy BETWEEN 1 AND 5),
            communication INTEGER NOT NULL CHECK (communication BETWEEN 1 AND 5),
            product INTEGER NOT NULL CHECK (product BETWEEN 1 AND 5),
            comment TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );
        CREATE INDEX IF NOT EXISTS idx_ratings_seller ON transaction_ratings(seller_id);
    `)
	return err
}

func ensureMessagingTables(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS message_threads (
            id BIGSERIAL PRIMARY KEY,
            car_id BIGINT NOT NULL REFERENCES cars(id),
            seller_id BIGINT NOT NULL REFERENCES users(id),
            buyer_id BIGINT NOT NULL REFERENCES users(id),
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE (car_id, seller_id, buyer_id)
        );

        CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            thread_id BIGINT NOT NULL REFERENCES message_threads(id),
            sender_id BIGINT NOT NULL REFERENCES users(id),
            recipient_id BIGINT NOT NULL REFERENCES users(id),
            body TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            read_at TIMESTAMPTZ NULL
        );
        CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, created_at, id);
        CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(recipient_id) WHERE read_at IS NULL;
    `)
	return err
}

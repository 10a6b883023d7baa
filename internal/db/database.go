package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Database holds the database connection pool
type Database struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// NewDatabase creates a new database connection with retry logic for serverless databases
func NewDatabase() (*Database, error) {
	return NewDatabaseWithRetry(5, time.Second)
}

// NewDatabaseWithRetry creates a new database connection with configurable retry logic
func NewDatabaseWithRetry(maxRetries int, initialDelay time.Duration) (*Database, error) {
	// Prefer DATABASE_URL if provided (single DSN)
	var poolConfig *pgxpool.Config
	var err error
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		poolConfig, err = pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
	} else {
		config := getConfigFromEnv()

		var connStr string
		if config.Password == "" {
			connStr = fmt.Sprintf(
				"host=%s port=%d user=%s dbname=%s sslmode=%s",
				config.Host,
				config.Port,
				config.User,
				config.DBName,
				config.SSLMode,
			)
		} else {
			connStr = fmt.Sprintf(
				"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
				config.Host,
				config.Port,
				config.User,
				config.Password,
				config.DBName,
				config.SSLMode,
			)
		}

		poolConfig, err = pgxpool.ParseConfig(connStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse database config: %w", err)
		}
	}

	// Set pool settings
	poolConfig.MaxConns = 30
	poolConfig.MinConns = 0
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 5 * time.Minute
	// Prefer simple protocol to stay pooler friendly
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	// Attempt to connect with retry logic for serverless databases (cold start)
	var pool *pgxpool.Pool
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.Printf("[SYNC-DB] Connection attempt %d/%d to database %s@%s:%d",
			attempt, maxRetries, poolConfig.ConnConfig.User, poolConfig.ConnConfig.Host, poolConfig.ConnConfig.Port)

		pool, err = pgxpool.NewWithConfig(context.Background(), poolConfig)
		if err != nil {
			lastErr = fmt.Errorf("failed to create connection pool: %w", err)
			log.Printf("[SYNC-DB] Failed to create pool (attempt %d): %v", attempt, err)
			if attempt < maxRetries {
				delay := time.Duration(attempt-1) * initialDelay
				log.Printf("[SYNC-DB] Retrying in %v...", delay)
				time.Sleep(delay)
			}
			continue
		}

		// Test the connection with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = pool.Ping(ctx)
		cancel()

		if err == nil {
			log.Printf("[SYNC-DB] Successfully connected to database on attempt %d", attempt)
			break
		}

		lastErr = fmt.Errorf("failed to ping database: %w", err)
		log.Printf("[SYNC-DB] Connection failed (attempt %d): %v", attempt, err)
		pool.Close()
		pool = nil

		if attempt < maxRetries {
			// Exponential backoff: 1s, 2s, 4s, 8s, 16s
			delay := initialDelay * time.Duration(1<<(attempt-1))
			log.Printf("[SYNC-DB] Retrying in %v...", delay)
			time.Sleep(delay)
		}
	}

	if pool == nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, lastErr)
	}

	db := &Database{Pool: pool}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.InitSchema(ctx); err != nil {
		log.Printf("[SYNC-DB] Warning: Failed to initialize database schema: %v", err)
		// Don't fail here - schema might be initialized later
	}

	log.Println("[SYNC-DB] Database connection established successfully")
	return db, nil
}

// Close closes the database connection pool
func (db *Database) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Println("Price sync database connection pool closed")
	}
}

// Health checks if the database is healthy
func (db *Database) Health(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// schemaStatements is the full DDL applied on startup. Statements are
// idempotent so a restart against an existing database is a no-op.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS suppliers (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		contact_name VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		phone VARCHAR(64) NOT NULL DEFAULT '',
		api_endpoint TEXT NOT NULL,
		api_key TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		sandbox_mode BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS marketplaces (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		website TEXT NOT NULL DEFAULT '',
		api_endpoint TEXT NOT NULL,
		api_key TEXT NOT NULL DEFAULT '',
		login VARCHAR(255) NOT NULL DEFAULT '',
		password TEXT NOT NULL DEFAULT '',
		pricing_action VARCHAR(16) NOT NULL DEFAULT 'multiply',
		pricing_value NUMERIC(12,4) NOT NULL DEFAULT 1,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		sandbox_mode BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		supplier_id UUID NULL REFERENCES suppliers(id) ON DELETE CASCADE,
		supplier_article VARCHAR(255) NOT NULL DEFAULT '',
		marketplace_id UUID NULL REFERENCES marketplaces(id) ON DELETE SET NULL,
		marketplace_article VARCHAR(255) NULL,
		name_supplier VARCHAR(512) NOT NULL DEFAULT '',
		name_marketplace VARCHAR(512) NULL,
		current_price NUMERIC(12,2) NULL,
		new_price NUMERIC(12,2) NULL,
		price_status VARCHAR(16) NOT NULL DEFAULT 'unchanged',
		pricing_action VARCHAR(16) NULL,
		pricing_value NUMERIC(12,4) NULL,
		name_comparison_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		auto_name_update BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_synced_at TIMESTAMPTZ NULL
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_products_supplier_article
		ON products(supplier_id, supplier_article)
		WHERE supplier_id IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_products_marketplace_article
		ON products(marketplace_article)
		WHERE marketplace_id IS NOT NULL;`,
	`CREATE TABLE IF NOT EXISTS automation_settings (
		id SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		auto_mode_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		sync_interval_minutes INTEGER NOT NULL DEFAULT 60,
		sync_period VARCHAR(32) NOT NULL DEFAULT '',
		max_requests_per_day INTEGER NOT NULL DEFAULT 1000,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`INSERT INTO automation_settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING;`,
	`CREATE TABLE IF NOT EXISTS sandbox_settings (
		user_id VARCHAR(255) PRIMARY KEY,
		is_sandbox_mode BOOLEAN NOT NULL DEFAULT FALSE,
		test_supplier_id UUID NULL,
		test_marketplace_id UUID NULL,
		max_test_requests INTEGER NOT NULL DEFAULT 10,
		test_requests_used INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
}

// InitSchema creates the required tables and indexes when they do not exist
func (db *Database) InitSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	log.Println("Price sync database schema verified successfully")
	return nil
}

// getConfigFromEnv reads database configuration from environment variables
func getConfigFromEnv() Config {
	config := Config{
		Host:     getEnv("DB_HOST", "localhost"),
		User:     getEnv("DB_USER", "pricesync_admin"),
		Password: getEnv("DB_PASSWORD", ""),
		DBName:   getEnv("DB_NAME", "pricesync_db"),
		SSLMode:  getEnv("DB_SSLMODE", "prefer"),
	}

	// Parse port
	portStr := getEnv("DB_PORT", "5432")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Printf("Invalid DB_PORT value: %s, using default 5432", portStr)
		port = 5432
	}
	config.Port = port

	return config
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

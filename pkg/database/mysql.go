package database

import (
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/cadencehq/outreach-dispatch/environments"
	"github.com/cadencehq/outreach-dispatch/pkg/logger"
)

func NewMySQLDB(cfg environments.DatabaseConfig) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&collation=utf8mb4_unicode_ci",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DBName,
	)

	db, err := sqlx.Connect("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Infof("Connected to MySQL database")
	return db, nil
}

func RunMigrations(db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tenants (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			brand_voice TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS sequences (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			name VARCHAR(255) NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_sequences_tenant (tenant_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS sequence_steps (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			sequence_id BIGINT NOT NULL,
			step_order INT NOT NULL,
			channel VARCHAR(30) NOT NULL,
			delay_days INT NOT NULL DEFAULT 0,
			metadata JSON,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE KEY ux_steps_sequence_order (sequence_id, step_order)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS prospects (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			full_name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL DEFAULT '',
			phone VARCHAR(30) NOT NULL DEFAULT '',
			profile_url VARCHAR(500) NOT NULL DEFAULT '',
			engagement_score DOUBLE NOT NULL DEFAULT 0,
			intent VARCHAR(100) NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_prospects_tenant (tenant_id),
			INDEX idx_prospects_email (email),
			INDEX idx_prospects_phone (phone)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS sequence_runs (
			id CHAR(36) PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			sequence_id BIGINT NOT NULL,
			prospect_id BIGINT NOT NULL,
			last_step_sent INT NOT NULL DEFAULT 0,
			next_step_due_at DATETIME NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'active',
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			INDEX idx_runs_due (status, next_step_due_at),
			INDEX idx_runs_tenant (tenant_id),
			INDEX idx_runs_prospect (prospect_id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS outbox_records (
			id CHAR(36) PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			run_id CHAR(36) NOT NULL,
			step_id BIGINT NOT NULL,
			channel VARCHAR(30) NOT NULL,
			idempotency_key CHAR(64) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'queued',
			provider_message_id VARCHAR(100) NULL,
			payload JSON,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
			UNIQUE KEY ux_outbox_idempotency_key (idempotency_key),
			INDEX idx_outbox_run (run_id),
			INDEX idx_outbox_tenant_status (tenant_id, status)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS manual_tasks (
			id CHAR(36) PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			run_id CHAR(36) NOT NULL,
			outbox_id CHAR(36) NOT NULL,
			profile_url VARCHAR(500) NOT NULL,
			message TEXT NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'open',
			completed_at DATETIME NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_tasks_tenant_status (tenant_id, status)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,

		`CREATE TABLE IF NOT EXISTS message_events (
			id CHAR(36) PRIMARY KEY,
			tenant_id BIGINT NOT NULL,
			run_id CHAR(36) NOT NULL,
			step_order INT NOT NULL,
			event_type VARCHAR(20) NOT NULL,
			detail TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_events_run (run_id),
			INDEX idx_events_tenant_type (tenant_id, event_type)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_unicode_ci;`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	logger.Infof("Database migrations completed")

	return nil
}

func SeedTestData(db *sqlx.DB) error {
	var count int

	err := db.Get(&count, "SELECT COUNT(*) FROM sequences")
	if err != nil {
		return err
	}

	if count > 0 {
		logger.Infof("Database already has %d sequences, skipping seed", count)
		return nil
	}

	res, err := db.Exec("INSERT INTO tenants (name, brand_voice) VALUES (?, ?)",
		"Acme Growth", "friendly, direct, no buzzwords")
	if err != nil {
		return fmt.Errorf("failed to seed tenant: %w", err)
	}
	tenantID, _ := res.LastInsertId()

	res, err = db.Exec("INSERT INTO sequences (tenant_id, name) VALUES (?, ?)",
		tenantID, "SaaS founder outreach")
	if err != nil {
		return fmt.Errorf("failed to seed sequence: %w", err)
	}
	sequenceID, _ := res.LastInsertId()

	steps := []struct {
		order    int
		channel  string
		delay    int
		metadata string
	}{
		{1, "email", 0, `{"subjectHint":"quick question","callToAction":"book a 15 minute intro call"}`},
		{2, "email", 3, `{"subjectHint":"following up","callToAction":"reply with a good time this week"}`},
		{3, "professional_network", 2, `{"callToAction":"connect and continue the conversation","connectionNote":"Enjoyed your recent post"}`},
	}

	for _, s := range steps {
		_, err := db.Exec(
			"INSERT INTO sequence_steps (sequence_id, step_order, channel, delay_days, metadata) VALUES (?, ?, ?, ?, ?)",
			sequenceID, s.order, s.channel, s.delay, s.metadata,
		)
		if err != nil {
			return fmt.Errorf("failed to seed sequence steps: %w", err)
		}
	}

	prospects := []struct {
		name, email, phone, profile, intent string
		score                               float64
	}{
		{"Ada Yilmaz", "ada@example.com", "+905551234567", "https://network.example/in/ada-yilmaz", "evaluating", 0.82},
		{"Mert Demir", "mert@example.com", "+905559876543", "https://network.example/in/mert-demir", "curious", 0.41},
		{"Elif Kaya", "elif@example.com", "+905551112233", "https://network.example/in/elif-kaya", "unknown", 0.12},
	}

	for _, p := range prospects {
		_, err := db.Exec(
			`INSERT INTO prospects (tenant_id, full_name, email, phone, profile_url, engagement_score, intent)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			tenantID, p.name, p.email, p.phone, p.profile, p.score, p.intent,
		)
		if err != nil {
			return fmt.Errorf("failed to seed prospects: %w", err)
		}
	}

	logger.Infof("Seeded 1 tenant, 1 sequence (%d steps), %d prospects", len(steps), len(prospects))
	return nil
}

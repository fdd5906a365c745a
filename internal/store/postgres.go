package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/pdf-chat/backend/internal/models"
)

// PostgresStore holds users, their subscriptions and their model settings.
type PostgresStore struct {
	pool *pgxpool.Pool
	keys *SecretBox
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// SealKeysWith encrypts saved API keys with box. Without it keys are stored
// as given.
func (s *PostgresStore) SealKeysWith(box *SecretBox) {
	s.keys = box
}

// Migrate creates the tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id                 UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username           VARCHAR(50)  UNIQUE NOT NULL,
			email              VARCHAR(255) UNIQUE NOT NULL,
			password           VARCHAR(255) NOT NULL,
			stripe_customer_id VARCHAR(255) UNIQUE,
			created_at         TIMESTAMPTZ  DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS subscriptions (
			user_id                UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			status                 VARCHAR(32)  NOT NULL,
			plan_key               VARCHAR(64)  NOT NULL,
			price_id               VARCHAR(255) NOT NULL DEFAULT '',
			stripe_subscription_id VARCHAR(255) NOT NULL DEFAULT '',
			current_period_end     TIMESTAMPTZ,
			updated_at             TIMESTAMPTZ  DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS user_settings (
			user_id    UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			api_key    TEXT        NOT NULL DEFAULT '',
			model      VARCHAR(64) NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, email, hashedPassword string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password)
		 VALUES ($1, $2, $3)
		 RETURNING id, username, email, created_at`,
		username, email, hashedPassword,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, password, created_at FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetSubscription returns nil, nil when the user never subscribed.
func (s *PostgresStore) GetSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	var (
		sub       models.Subscription
		periodEnd *time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, status, plan_key, price_id, stripe_subscription_id, current_period_end, updated_at
		 FROM subscriptions WHERE user_id = $1`, userID,
	).Scan(&sub.UserID, &sub.Status, &sub.PlanKey, &sub.PriceID, &sub.StripeSubscriptionID, &periodEnd, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	if periodEnd != nil {
		sub.CurrentPeriodEnd = *periodEnd
	}
	return &sub, nil
}

func (s *PostgresStore) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	var periodEnd *time.Time
	if !sub.CurrentPeriodEnd.IsZero() {
		periodEnd = &sub.CurrentPeriodEnd
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO subscriptions (user_id, status, plan_key, price_id, stripe_subscription_id, current_period_end, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
			status = EXCLUDED.status,
			plan_key = EXCLUDED.plan_key,
			price_id = EXCLUDED.price_id,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			current_period_end = EXCLUDED.current_period_end,
			updated_at = NOW()`,
		sub.UserID, sub.Status, sub.PlanKey, sub.PriceID, sub.StripeSubscriptionID, periodEnd,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// GetStripeCustomerID returns "" when no customer has been created yet.
func (s *PostgresStore) GetStripeCustomerID(ctx context.Context, userID string) (string, error) {
	var id *string
	err := s.pool.QueryRow(ctx,
		`SELECT stripe_customer_id FROM users WHERE id = $1`, userID,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("get stripe customer: %w", err)
	}
	if id == nil {
		return "", nil
	}
	return *id, nil
}

func (s *PostgresStore) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET stripe_customer_id = $2 WHERE id = $1`, userID, customerID,
	)
	if err != nil {
		return fmt.Errorf("set stripe customer: %w", err)
	}
	return nil
}

// FindUserByStripeCustomer returns "" when no user owns customerID.
func (s *PostgresStore) FindUserByStripeCustomer(ctx context.Context, customerID string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM users WHERE stripe_customer_id = $1`, customerID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find user by stripe customer: %w", err)
	}
	return id, nil
}

// GetSettings returns zero settings when none were saved.
func (s *PostgresStore) GetSettings(ctx context.Context, userID string) (models.Settings, error) {
	var st models.Settings
	err := s.pool.QueryRow(ctx,
		`SELECT api_key, model, updated_at FROM user_settings WHERE user_id = $1`, userID,
	).Scan(&st.APIKey, &st.Model, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Settings{}, nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	if st.APIKey, err = s.keys.Open(st.APIKey); err != nil {
		return models.Settings{}, fmt.Errorf("open api key: %w", err)
	}
	return st, nil
}

func (s *PostgresStore) SaveSettings(ctx context.Context, userID string, st models.Settings) error {
	key, err := s.keys.Seal(st.APIKey)
	if err != nil {
		return fmt.Errorf("seal api key: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO user_settings (user_id, api_key, model, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_id) DO UPDATE SET
			api_key = EXCLUDED.api_key,
			model = EXCLUDED.model,
			updated_at = NOW()`,
		userID, key, st.Model,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

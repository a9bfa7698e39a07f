package storage

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/voxcliente/backend/pkg/logger"
	"github.com/voxcliente/backend/services/actas/entity"
)

var userColumns = []string{
	"user_id", "auth_provider_id", "email", "user_cohort",
	"total_cost_usd", "total_actas", "created_at",
}

// UpsertUser returns the user registered under email, creating it on
// first sight. The e-mail doubles as the auth provider id.
func (s *storage) UpsertUser(ctx context.Context, email string) (*entity.User, error) {
	log := logger.FromContext(ctx)

	query, args, err := upsertUserQuery(s.ids.NextString(), email, s.now().Format("2006-01")).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build upsert user query: %w", err)
	}

	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		log.Error("failed to upsert user", "error", err)
		return nil, fmt.Errorf("failed to upsert user: %w", describe(err))
	}
	log.Debug("upserted user", "user_id", user.ID)

	return user, nil
}

func (s *storage) GetUserByEmail(ctx context.Context, email string) (*entity.User, error) {
	query, args, err := psql.Select(userColumns...).
		From("users").
		Where(sq.Eq{"email": normalizeEmail(email)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	user, err := scanUser(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", notFound(err))
	}
	return user, nil
}

// AddUserUsage adds one acta and its cost to the user totals.
func (s *storage) AddUserUsage(ctx context.Context, userID string, costUSD float64) error {
	query, args, err := addUsageQuery(userID, costUSD).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build usage query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to add user usage: %w", describe(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("failed to add user usage: %w", ErrNotFound)
	}
	return nil
}

func upsertUserQuery(id, email, cohort string) sq.InsertBuilder {
	email = normalizeEmail(email)
	return psql.Insert("users").
		Columns("user_id", "auth_provider_id", "email", "user_cohort").
		Values(id, email, email, cohort).
		Suffix("ON CONFLICT (email) DO UPDATE SET updated_at = NOW() RETURNING " + strings.Join(userColumns, ", "))
}

func addUsageQuery(userID string, costUSD float64) sq.UpdateBuilder {
	return psql.Update("users").
		Set("total_cost_usd", sq.Expr("total_cost_usd + ?", costUSD)).
		Set("total_actas", sq.Expr("total_actas + 1")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"user_id": userID})
}

func scanUser(row rowScanner) (*entity.User, error) {
	var u entity.User
	if err := row.Scan(&u.ID, &u.AuthProviderID, &u.Email, &u.Cohort, &u.TotalCostUSD, &u.TotalActas, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

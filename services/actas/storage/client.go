package storage

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/voxcliente/backend/pkg/logger"
	"github.com/voxcliente/backend/services/actas/entity"
)

var clientColumns = []string{"client_id", "user_id", "client_name", "industry", "created_at"}

func (s *storage) UpsertClient(ctx context.Context, userID, name string) (*entity.Client, error) {
	log := logger.FromContext(ctx)

	query, args, err := upsertClientQuery(s.ids.NextString(), userID, strings.TrimSpace(name)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build upsert client query: %w", err)
	}

	client, err := scanClient(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		log.Error("failed to upsert client", "error", err)
		return nil, fmt.Errorf("failed to upsert client: %w", describe(err))
	}
	return client, nil
}

func (s *storage) ListClientsByUser(ctx context.Context, userID string) ([]*entity.Client, error) {
	query, args, err := psql.Select(clientColumns...).
		From("clients").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list clients query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", describe(err))
	}
	defer rows.Close()

	var clients []*entity.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clients: %w", err)
	}
	return clients, nil
}

func upsertClientQuery(id, userID, name string) sq.InsertBuilder {
	return psql.Insert("clients").
		Columns("client_id", "user_id", "client_name").
		Values(id, userID, name).
		Suffix("ON CONFLICT (user_id, client_name) DO UPDATE SET updated_at = NOW() RETURNING " + strings.Join(clientColumns, ", "))
}

func scanClient(row rowScanner) (*entity.Client, error) {
	var c entity.Client
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Industry, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

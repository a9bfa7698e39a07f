package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/voxcliente/backend/pkg/gen"
	"github.com/voxcliente/backend/services/actas/entity"
)

//go:embed schema.sql
var schema string

var ErrNotFound = errors.New("record not found")

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type Storage interface {
	UpsertUser(ctx context.Context, email string) (*entity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	AddUserUsage(ctx context.Context, userID string, costUSD float64) error

	UpsertClient(ctx context.Context, userID, name string) (*entity.Client, error)
	ListClientsByUser(ctx context.Context, userID string) ([]*entity.Client, error)

	CreateMeeting(ctx context.Context, req *entity.CreateMeeting) (*entity.Meeting, error)
	UpdateMeeting(ctx context.Context, meetingID string, upd *entity.MeetingUpdate) error
	ListMeetingsByUser(ctx context.Context, userID string) ([]*entity.Meeting, error)
	ListMeetingsByClient(ctx context.Context, clientID string) ([]*entity.Meeting, error)
}

type storage struct {
	db  *sql.DB
	ids gen.UUIDGenerator
	now func() time.Time
}

func New(db *sql.DB) Storage {
	return &storage{
		db:  db,
		ids: gen.UUID(),
		now: time.Now,
	}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", describe(err))
	}
	return db, nil
}

// Migrate applies the embedded schema. It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", describe(err))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// describe annotates Postgres errors with their SQLSTATE code.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%w (sqlstate %s, %s)", err, pqErr.Code, pqErr.Code.Name())
	}
	return err
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return describe(err)
}

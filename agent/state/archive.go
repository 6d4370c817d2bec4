package state

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// Archive is an append-only log of conversation turns, separate from the
// hot session store. Optional: the pipeline works without one.
type Archive interface {
	AppendTurns(ctx context.Context, sessionID string, turns []Turn) error
}

type TurnRecord struct {
	bun.BaseModel `bun:"table:session_turns"`

	ID        int64     `bun:",pk,autoincrement"`
	SessionID string    `bun:"session_id,notnull"`
	Role      string    `bun:"role,notnull"`
	Agent     string    `bun:"agent"`
	Content   string    `bun:"content,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

type PostgresArchiveConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

// PostgresArchive stores turns in Postgres through bun.
type PostgresArchive struct {
	db *bun.DB
}

func NewPostgresArchive(cfg PostgresArchiveConfig) (*PostgresArchive, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(cfg.Timeout),
	))
	return &PostgresArchive{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

// EnsureSchema creates the turns table when missing.
func (a *PostgresArchive) EnsureSchema(ctx context.Context) error {
	_, err := a.db.NewCreateTable().
		Model((*TurnRecord)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (a *PostgresArchive) AppendTurns(ctx context.Context, sessionID string, turns []Turn) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidSession
	}
	if len(turns) == 0 {
		return nil
	}
	records := make([]TurnRecord, 0, len(turns))
	for _, t := range turns {
		records = append(records, TurnRecord{
			SessionID: sessionID,
			Role:      string(t.Role),
			Agent:     t.Agent,
			Content:   t.Content,
			CreatedAt: t.At.UTC(),
		})
	}
	_, err := a.db.NewInsert().Model(&records).Exec(ctx)
	return err
}

func (a *PostgresArchive) Close() error {
	return a.db.Close()
}

package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-storefront-auth"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// ItemModel is one client storage entry
type ItemModel struct {
	bun.BaseModel `bun:"table:storage_items"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Open connects to a sqlite database, ":memory:" and "file:..." DSNs work
func Open(dsn string) (*bun.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file::memory:?cache=shared"
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open session database").
			WithMetadata(map[string]any{"dsn": dsn})
	}

	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		sqldb.SetMaxOpenConns(1)
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

// Migrate creates the storage and cookie tables
func Migrate(ctx context.Context, db *bun.DB) error {
	models := []any{(*ItemModel)(nil), (*CookieModel)(nil)}
	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to migrate session database")
		}
	}
	return nil
}

var _ auth.Storage = (*Store)(nil)

// Store is a persistent auth.Storage, the CLI equivalent of a browser's
// local storage
type Store struct {
	db  *bun.DB
	now func() time.Time
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	var model ItemModel
	err := s.db.NewSelect().
		Model(&model).
		Where("key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return model.Value, true, nil
}

func (s *Store) SetItem(ctx context.Context, key, value string) error {
	model := &ItemModel{
		Key:       key,
		Value:     value,
		UpdatedAt: s.now(),
	}

	_, err := s.db.NewInsert().
		Model(model).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) RemoveItem(ctx context.Context, key string) error {
	_, err := s.db.NewDelete().
		Model((*ItemModel)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	return err
}

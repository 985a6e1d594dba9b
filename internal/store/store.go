package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/derekprior/legacies/internal/game"
	"github.com/derekprior/legacies/internal/history"
	"github.com/derekprior/legacies/internal/rating"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// repos binds every repository to one querier.
type repos struct {
	q             querier
	defaultRating int
}

func (r repos) Games() game.Repository     { return &GameRepository{q: r.q} }
func (r repos) Stats() rating.StatsStore   { return &StatsRepository{q: r.q, defaultRating: r.defaultRating} }
func (r repos) History() history.Store     { return &HistoryRepository{q: r.q} }
func (r repos) Players() *PlayerRepository { return &PlayerRepository{q: r.q, defaultRating: r.defaultRating} }

// Store is the SQLite backed game.Store.
type Store struct {
	repos
	db     *sql.DB
	logger zerolog.Logger
}

// Open connects to the database at path, tunes it and runs migrations.
func Open(path string, defaultRating int, logger zerolog.Logger) (*Store, error) {
	logger.Info().Str("path", path).Msg("connecting to database")

	dsn := fmt.Sprintf("file:%s?_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// One connection keeps the pragmas in effect and serializes writers.
	db.SetMaxOpenConns(1)

	if err := optimizeSQLite(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to optimize SQLite: %w", err)
	}
	if err := runMigrations(db, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug().Msg("database ready")
	return &Store{
		repos:  repos{q: db, defaultRating: defaultRating},
		db:     db,
		logger: logger,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InTx runs fn against repositories bound to one transaction, committing
// when fn returns nil.
func (s *Store) InTx(ctx context.Context, fn func(game.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(repos{q: tx, defaultRating: s.defaultRating}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func runMigrations(db *sql.DB, logger zerolog.Logger) error {
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(gooseLogger{logger})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}
	return nil
}

func optimizeSQLite(db *sql.DB, logger zerolog.Logger) error {
	pragmas := []struct {
		name  string
		value string
	}{
		{"journal_mode", "WAL"},
		{"synchronous", "NORMAL"},
		{"busy_timeout", "5000"},
		{"foreign_keys", "ON"},
		{"temp_store", "MEMORY"},
	}

	for _, pragma := range pragmas {
		query := fmt.Sprintf("PRAGMA %s = %s", pragma.name, pragma.value)
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("failed to set PRAGMA %s: %w", pragma.name, err)
		}
		logger.Debug().
			Str("pragma", pragma.name).
			Str("value", pragma.value).
			Msg("SQLite pragma set")
	}
	return nil
}

// gooseLogger routes migration output through zerolog.
type gooseLogger struct {
	logger zerolog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Debug().Msgf(format, v...)
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error().Msgf(format, v...)
}

// Package pgstore implements casting.Store on PostgreSQL with pgx.
package pgstore

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deepworx/casting-agency/pkg/casting"
	"github.com/deepworx/casting-agency/pkg/postgres"
)

//go:embed schema.sql
var schemaSQL string

//go:embed drop.sql
var dropSQL string

// Store is a casting.Store backed by a pgx pool. Calls inside a unit of work
// use its transaction; calls outside use the pool directly.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store on pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the tables and indexes that do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	slog.InfoContext(ctx, "schema applied")
	return nil
}

// Reset drops every table and recreates the schema. All data is lost.
func (s *Store) Reset(ctx context.Context) error {
	err := postgres.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, dropSQL); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
		if _, err := tx.Exec(ctx, schemaSQL); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	slog.WarnContext(ctx, "schema reset")
	return nil
}

func (s *Store) db(tx postgres.Transaction) postgres.DBTX {
	return postgres.Conn(tx, s.pool)
}

func notFound(kind string, id int64, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %d: %w", kind, id, casting.ErrNotFound)
	}
	return fmt.Errorf("query %s %d: %w", kind, id, err)
}

func count(ctx context.Context, db postgres.DBTX, table string) (int, error) {
	var n int
	if err := db.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func limit(p casting.Page) any {
	if p.Limit <= 0 {
		return nil // LIMIT NULL is no limit
	}
	return p.Limit
}

const (
	listActorsSQL  = `SELECT id, name, age, gender FROM actors ORDER BY id LIMIT $1 OFFSET $2`
	getActorSQL    = `SELECT id, name, age, gender FROM actors WHERE id = $1`
	createActorSQL = `INSERT INTO actors (name, age, gender) VALUES ($1, $2, $3) RETURNING id, name, age, gender`
	updateActorSQL = `UPDATE actors SET name = $2, age = $3, gender = $4 WHERE id = $1 RETURNING id, name, age, gender`
	deleteActorSQL = `DELETE FROM actors WHERE id = $1`
)

func (s *Store) ListActors(ctx context.Context, tx postgres.Transaction, page casting.Page) ([]casting.Actor, int, error) {
	db := s.db(tx)
	total, err := count(ctx, db, "actors")
	if err != nil {
		return nil, 0, err
	}
	rows, err := db.Query(ctx, listActorsSQL, limit(page), page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list actors: %w", err)
	}
	actors, err := pgx.CollectRows(rows, pgx.RowToStructByName[casting.Actor])
	if err != nil {
		return nil, 0, fmt.Errorf("scan actors: %w", err)
	}
	return actors, total, nil
}

func (s *Store) GetActor(ctx context.Context, tx postgres.Transaction, id int64) (casting.Actor, error) {
	return s.actorRow(ctx, tx, id, getActorSQL, id)
}

func (s *Store) CreateActor(ctx context.Context, tx postgres.Transaction, a casting.Actor) (casting.Actor, error) {
	rows, err := s.db(tx).Query(ctx, createActorSQL, a.Name, a.Age, a.Gender)
	if err != nil {
		return casting.Actor{}, fmt.Errorf("insert actor: %w", err)
	}
	created, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[casting.Actor])
	if err != nil {
		return casting.Actor{}, fmt.Errorf("insert actor: %w", err)
	}
	return created, nil
}

func (s *Store) UpdateActor(ctx context.Context, tx postgres.Transaction, a casting.Actor) (casting.Actor, error) {
	return s.actorRow(ctx, tx, a.ID, updateActorSQL, a.ID, a.Name, a.Age, a.Gender)
}

func (s *Store) actorRow(ctx context.Context, tx postgres.Transaction, id int64, sql string, args ...any) (casting.Actor, error) {
	rows, err := s.db(tx).Query(ctx, sql, args...)
	if err != nil {
		return casting.Actor{}, notFound("actor", id, err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[casting.Actor])
	if err != nil {
		return casting.Actor{}, notFound("actor", id, err)
	}
	return a, nil
}

func (s *Store) DeleteActor(ctx context.Context, tx postgres.Transaction, id int64) error {
	return s.delete(ctx, tx, "actor", deleteActorSQL, id)
}

const (
	listMoviesSQL  = `SELECT id, title, release_date FROM movies ORDER BY id LIMIT $1 OFFSET $2`
	getMovieSQL    = `SELECT id, title, release_date FROM movies WHERE id = $1`
	createMovieSQL = `INSERT INTO movies (title, release_date) VALUES ($1, $2) RETURNING id, title, release_date`
	updateMovieSQL = `UPDATE movies SET title = $2, release_date = $3 WHERE id = $1 RETURNING id, title, release_date`
	deleteMovieSQL = `DELETE FROM movies WHERE id = $1`
)

func (s *Store) ListMovies(ctx context.Context, tx postgres.Transaction, page casting.Page) ([]casting.Movie, int, error) {
	db := s.db(tx)
	total, err := count(ctx, db, "movies")
	if err != nil {
		return nil, 0, err
	}
	rows, err := db.Query(ctx, listMoviesSQL, limit(page), page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list movies: %w", err)
	}
	movies, err := pgx.CollectRows(rows, pgx.RowToStructByName[casting.Movie])
	if err != nil {
		return nil, 0, fmt.Errorf("scan movies: %w", err)
	}
	return movies, total, nil
}

func (s *Store) GetMovie(ctx context.Context, tx postgres.Transaction, id int64) (casting.Movie, error) {
	return s.movieRow(ctx, tx, id, getMovieSQL, id)
}

func (s *Store) CreateMovie(ctx context.Context, tx postgres.Transaction, m casting.Movie) (casting.Movie, error) {
	rows, err := s.db(tx).Query(ctx, createMovieSQL, m.Title, casting.TruncateDate(m.ReleaseDate))
	if err != nil {
		return casting.Movie{}, fmt.Errorf("insert movie: %w", err)
	}
	created, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[casting.Movie])
	if err != nil {
		return casting.Movie{}, fmt.Errorf("insert movie: %w", err)
	}
	return created, nil
}

func (s *Store) UpdateMovie(ctx context.Context, tx postgres.Transaction, m casting.Movie) (casting.Movie, error) {
	return s.movieRow(ctx, tx, m.ID, updateMovieSQL, m.ID, m.Title, casting.TruncateDate(m.ReleaseDate))
}

func (s *Store) movieRow(ctx context.Context, tx postgres.Transaction, id int64, sql string, args ...any) (casting.Movie, error) {
	rows, err := s.db(tx).Query(ctx, sql, args...)
	if err != nil {
		return casting.Movie{}, notFound("movie", id, err)
	}
	m, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[casting.Movie])
	if err != nil {
		return casting.Movie{}, notFound("movie", id, err)
	}
	return m, nil
}

func (s *Store) DeleteMovie(ctx context.Context, tx postgres.Transaction, id int64) error {
	return s.delete(ctx, tx, "movie", deleteMovieSQL, id)
}

// performanceRow is the flattened join of a performance with its actor and movie.
type performanceRow struct {
	ID          int64     `db:"id"`
	ActorID     int64     `db:"actor_id"`
	MovieID     int64     `db:"movie_id"`
	ActorName   string    `db:"actor_name"`
	ActorAge    int       `db:"actor_age"`
	ActorGender string    `db:"actor_gender"`
	MovieTitle  string    `db:"movie_title"`
	MovieDate   time.Time `db:"movie_release_date"`
}

func (r performanceRow) performance() casting.Performance {
	return casting.Performance{
		ID:      r.ID,
		ActorID: r.ActorID,
		MovieID: r.MovieID,
		Actor:   casting.Actor{ID: r.ActorID, Name: r.ActorName, Age: r.ActorAge, Gender: r.ActorGender},
		Movie:   casting.Movie{ID: r.MovieID, Title: r.MovieTitle, ReleaseDate: r.MovieDate},
	}
}

const performanceColumns = `p.id, p.actor_id, p.movie_id,
	a.name AS actor_name, a.age AS actor_age, a.gender AS actor_gender,
	m.title AS movie_title, m.release_date AS movie_release_date`

const (
	listPerformancesSQL = `SELECT ` + performanceColumns + `
	FROM performances p
	JOIN actors a ON a.id = p.actor_id
	JOIN movies m ON m.id = p.movie_id
	ORDER BY p.id LIMIT $1 OFFSET $2`
	createPerformanceSQL = `WITH p AS (
		INSERT INTO performances (actor_id, movie_id) VALUES ($1, $2)
		RETURNING id, actor_id, movie_id
	)
	SELECT ` + performanceColumns + `
	FROM p
	JOIN actors a ON a.id = p.actor_id
	JOIN movies m ON m.id = p.movie_id`
	deletePerformanceSQL = `DELETE FROM performances WHERE id = $1`
)

func (s *Store) ListPerformances(ctx context.Context, tx postgres.Transaction, page casting.Page) ([]casting.Performance, int, error) {
	db := s.db(tx)
	total, err := count(ctx, db, "performances")
	if err != nil {
		return nil, 0, err
	}
	rows, err := db.Query(ctx, listPerformancesSQL, limit(page), page.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list performances: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[performanceRow])
	if err != nil {
		return nil, 0, fmt.Errorf("scan performances: %w", err)
	}
	out := make([]casting.Performance, 0, len(records))
	for _, r := range records {
		out = append(out, r.performance())
	}
	return out, total, nil
}

// CreatePerformance inserts the link. A missing actor or movie surfaces as a
// foreign key violation.
func (s *Store) CreatePerformance(ctx context.Context, tx postgres.Transaction, actorID, movieID int64) (casting.Performance, error) {
	rows, err := s.db(tx).Query(ctx, createPerformanceSQL, actorID, movieID)
	if err != nil {
		return casting.Performance{}, fmt.Errorf("insert performance: %w", err)
	}
	r, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[performanceRow])
	if err != nil {
		return casting.Performance{}, fmt.Errorf("insert performance: %w", err)
	}
	return r.performance(), nil
}

func (s *Store) DeletePerformance(ctx context.Context, tx postgres.Transaction, id int64) error {
	return s.delete(ctx, tx, "performance", deletePerformanceSQL, id)
}

func (s *Store) delete(ctx context.Context, tx postgres.Transaction, kind, sql string, id int64) error {
	tag, err := s.db(tx).Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, casting.ErrNotFound)
	}
	return nil
}

var _ casting.Store = (*Store)(nil)

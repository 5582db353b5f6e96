package casting

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/deepworx/casting-agency/pkg/ctxutil"
	"github.com/deepworx/casting-agency/pkg/postgres"
	"github.com/deepworx/casting-agency/pkg/tracing"
)

// Config holds service settings.
type Config struct {
	// PageSize is the number of records returned per list page.
	// Default: 10
	PageSize int `koanf:"page_size"`
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{PageSize: 10}
}

// List is one page of a listing.
type List[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
}

// Service implements the casting operations on top of a Store.
type Service struct {
	store    Store
	uow      postgres.UnitOfWork
	pageSize int
}

// NewService creates a Service. A non-positive PageSize falls back to the default.
func NewService(store Store, uow postgres.UnitOfWork, cfg Config) *Service {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultConfig().PageSize
	}
	return &Service{store: store, uow: uow, pageSize: pageSize}
}

// PageSize returns the effective page size.
func (s *Service) PageSize() int {
	return s.pageSize
}

// inUnit runs fn in a unit of work inside a span named "casting.<op>".
func inUnit[T any](ctx context.Context, s *Service, op string, fn func(ctx context.Context, tx postgres.Transaction) (T, error), attrs ...attribute.KeyValue) (T, error) {
	return tracing.WithSpanResult(ctx, "casting."+op, func(ctx context.Context) (T, error) {
		var out T
		err := s.uow.Execute(ctx, func(ctx context.Context, tx postgres.Transaction) error {
			var err error
			out, err = fn(ctx, tx)
			return err
		})
		return out, err
	}, attrs...)
}

func (s *Service) window(page int) (Page, error) {
	if page < 1 {
		return Page{}, fmt.Errorf("page %d: %w", page, ErrInvalid)
	}
	return Page{Limit: s.pageSize, Offset: (page - 1) * s.pageSize}, nil
}

func listPage[T any](ctx context.Context, s *Service, op string, page int, list func(ctx context.Context, tx postgres.Transaction, p Page) ([]T, int, error)) (List[T], error) {
	window, err := s.window(page)
	if err != nil {
		return List[T]{}, err
	}
	return inUnit(ctx, s, op, func(ctx context.Context, tx postgres.Transaction) (List[T], error) {
		items, total, err := list(ctx, tx, window)
		if err != nil {
			return List[T]{}, err
		}
		if page > 1 && window.Offset >= total {
			return List[T]{}, fmt.Errorf("page %d of %d records: %w", page, total, ErrPageOutOfRange)
		}
		return List[T]{Items: items, Total: total, Page: page, PageSize: s.pageSize}, nil
	}, attribute.Int("casting.page", page))
}

func idAttr(id int64) attribute.KeyValue {
	return attribute.Int64("casting.id", id)
}

func logDeleted(ctx context.Context, kind string, id int64) {
	attrs := []any{slog.Int64("id", id)}
	if subject, ok := ctxutil.Subject(ctx); ok {
		attrs = append(attrs, slog.String("subject", subject))
	}
	slog.InfoContext(ctx, kind+" deleted", attrs...)
}

// ListActors returns the 1-based page of actors ordered by ID.
func (s *Service) ListActors(ctx context.Context, page int) (List[Actor], error) {
	return listPage(ctx, s, "list_actors", page, s.store.ListActors)
}

// GetActor returns the actor with id.
func (s *Service) GetActor(ctx context.Context, id int64) (Actor, error) {
	return inUnit(ctx, s, "get_actor", func(ctx context.Context, tx postgres.Transaction) (Actor, error) {
		return s.store.GetActor(ctx, tx, id)
	}, idAttr(id))
}

// CreateActor validates and stores a new actor.
func (s *Service) CreateActor(ctx context.Context, a Actor) (Actor, error) {
	a.ID = 0
	if err := a.Validate(); err != nil {
		return Actor{}, err
	}
	return inUnit(ctx, s, "create_actor", func(ctx context.Context, tx postgres.Transaction) (Actor, error) {
		return s.store.CreateActor(ctx, tx, a)
	})
}

// UpdateActor applies patch to the actor with id.
func (s *Service) UpdateActor(ctx context.Context, id int64, patch ActorPatch) (Actor, error) {
	return inUnit(ctx, s, "update_actor", func(ctx context.Context, tx postgres.Transaction) (Actor, error) {
		current, err := s.store.GetActor(ctx, tx, id)
		if err != nil {
			return Actor{}, err
		}
		updated := patch.Apply(current)
		if err := updated.Validate(); err != nil {
			return Actor{}, err
		}
		return s.store.UpdateActor(ctx, tx, updated)
	}, idAttr(id))
}

// DeleteActor removes the actor with id and its performances.
func (s *Service) DeleteActor(ctx context.Context, id int64) error {
	_, err := inUnit(ctx, s, "delete_actor", func(ctx context.Context, tx postgres.Transaction) (struct{}, error) {
		return struct{}{}, s.store.DeleteActor(ctx, tx, id)
	}, idAttr(id))
	if err == nil {
		logDeleted(ctx, "actor", id)
	}
	return err
}

// ListMovies returns the 1-based page of movies ordered by ID.
func (s *Service) ListMovies(ctx context.Context, page int) (List[Movie], error) {
	return listPage(ctx, s, "list_movies", page, s.store.ListMovies)
}

// GetMovie returns the movie with id.
func (s *Service) GetMovie(ctx context.Context, id int64) (Movie, error) {
	return inUnit(ctx, s, "get_movie", func(ctx context.Context, tx postgres.Transaction) (Movie, error) {
		return s.store.GetMovie(ctx, tx, id)
	}, idAttr(id))
}

// CreateMovie validates and stores a new movie.
func (s *Service) CreateMovie(ctx context.Context, m Movie) (Movie, error) {
	m.ID = 0
	m.ReleaseDate = TruncateDate(m.ReleaseDate)
	if err := m.Validate(); err != nil {
		return Movie{}, err
	}
	return inUnit(ctx, s, "create_movie", func(ctx context.Context, tx postgres.Transaction) (Movie, error) {
		return s.store.CreateMovie(ctx, tx, m)
	})
}

// UpdateMovie applies patch to the movie with id.
func (s *Service) UpdateMovie(ctx context.Context, id int64, patch MoviePatch) (Movie, error) {
	return inUnit(ctx, s, "update_movie", func(ctx context.Context, tx postgres.Transaction) (Movie, error) {
		current, err := s.store.GetMovie(ctx, tx, id)
		if err != nil {
			return Movie{}, err
		}
		updated := patch.Apply(current)
		updated.ReleaseDate = TruncateDate(updated.ReleaseDate)
		if err := updated.Validate(); err != nil {
			return Movie{}, err
		}
		return s.store.UpdateMovie(ctx, tx, updated)
	}, idAttr(id))
}

// DeleteMovie removes the movie with id and its performances.
func (s *Service) DeleteMovie(ctx context.Context, id int64) error {
	_, err := inUnit(ctx, s, "delete_movie", func(ctx context.Context, tx postgres.Transaction) (struct{}, error) {
		return struct{}{}, s.store.DeleteMovie(ctx, tx, id)
	}, idAttr(id))
	if err == nil {
		logDeleted(ctx, "movie", id)
	}
	return err
}

// ListPerformances returns the 1-based page of performances ordered by ID.
func (s *Service) ListPerformances(ctx context.Context, page int) (List[Performance], error) {
	return listPage(ctx, s, "list_performances", page, s.store.ListPerformances)
}

// CreatePerformance casts the actor in the movie. Both must exist.
func (s *Service) CreatePerformance(ctx context.Context, actorID, movieID int64) (Performance, error) {
	return inUnit(ctx, s, "create_performance", func(ctx context.Context, tx postgres.Transaction) (Performance, error) {
		if _, err := s.store.GetActor(ctx, tx, actorID); err != nil {
			return Performance{}, err
		}
		if _, err := s.store.GetMovie(ctx, tx, movieID); err != nil {
			return Performance{}, err
		}
		return s.store.CreatePerformance(ctx, tx, actorID, movieID)
	}, attribute.Int64("casting.actor_id", actorID), attribute.Int64("casting.movie_id", movieID))
}

// DeletePerformance removes the performance with id.
func (s *Service) DeletePerformance(ctx context.Context, id int64) error {
	_, err := inUnit(ctx, s, "delete_performance", func(ctx context.Context, tx postgres.Transaction) (struct{}, error) {
		return struct{}{}, s.store.DeletePerformance(ctx, tx, id)
	}, idAttr(id))
	if err == nil {
		logDeleted(ctx, "performance", id)
	}
	return err
}

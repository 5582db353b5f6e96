package casting

import (
	"context"

	"github.com/deepworx/casting-agency/pkg/postgres"
)

// Page selects a window of a list ordered by ID.
type Page struct {
	Limit  int
	Offset int
}

// Store persists the casting domain. Every method runs within tx, which is
// the transaction of the surrounding unit of work; implementations that do
// not use a database ignore it. Missing records are reported as ErrNotFound.
type Store interface {
	ListActors(ctx context.Context, tx postgres.Transaction, page Page) ([]Actor, int, error)
	GetActor(ctx context.Context, tx postgres.Transaction, id int64) (Actor, error)
	CreateActor(ctx context.Context, tx postgres.Transaction, a Actor) (Actor, error)
	UpdateActor(ctx context.Context, tx postgres.Transaction, a Actor) (Actor, error)
	DeleteActor(ctx context.Context, tx postgres.Transaction, id int64) error

	ListMovies(ctx context.Context, tx postgres.Transaction, page Page) ([]Movie, int, error)
	GetMovie(ctx context.Context, tx postgres.Transaction, id int64) (Movie, error)
	CreateMovie(ctx context.Context, tx postgres.Transaction, m Movie) (Movie, error)
	UpdateMovie(ctx context.Context, tx postgres.Transaction, m Movie) (Movie, error)
	DeleteMovie(ctx context.Context, tx postgres.Transaction, id int64) error

	ListPerformances(ctx context.Context, tx postgres.Transaction, page Page) ([]Performance, int, error)
	CreatePerformance(ctx context.Context, tx postgres.Transaction, actorID, movieID int64) (Performance, error)
	DeletePerformance(ctx context.Context, tx postgres.Transaction, id int64) error
}

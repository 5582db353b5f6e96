package castingapi

import "github.com/deepworx/casting-agency/pkg/casting"

// ListRequest selects a 1-based page. Zero means the first page.
type ListRequest struct {
	Page int `json:"page" validate:"gte=0"`
}

// IDRequest addresses one record.
type IDRequest struct {
	ID int64 `json:"id" validate:"required,gt=0"`
}

type CreateActorRequest struct {
	Name   string `json:"name" validate:"required,max=200"`
	Age    int    `json:"age" validate:"gte=0,lte=150"`
	Gender string `json:"gender" validate:"required,max=50"`
}

// UpdateActorRequest changes the fields that are present.
type UpdateActorRequest struct {
	ID     int64   `json:"id" validate:"required,gt=0"`
	Name   *string `json:"name" validate:"omitnil,min=1,max=200"`
	Age    *int    `json:"age" validate:"omitnil,gte=0,lte=150"`
	Gender *string `json:"gender" validate:"omitnil,min=1,max=50"`
}

type CreateMovieRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	ReleaseDate string `json:"release_date" validate:"required,datetime=2006-01-02"`
}

// UpdateMovieRequest changes the fields that are present.
type UpdateMovieRequest struct {
	ID          int64   `json:"id" validate:"required,gt=0"`
	Title       *string `json:"title" validate:"omitnil,min=1,max=200"`
	ReleaseDate *string `json:"release_date" validate:"omitnil,datetime=2006-01-02"`
}

type CreatePerformanceRequest struct {
	ActorID int64 `json:"actor_id" validate:"required,gt=0"`
	MovieID int64 `json:"movie_id" validate:"required,gt=0"`
}

// Movie is the wire form of casting.Movie with a date-only release date.
type Movie struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	ReleaseDate string `json:"release_date"`
}

func toMovie(m casting.Movie) Movie {
	return Movie{ID: m.ID, Title: m.Title, ReleaseDate: m.ReleaseDate.Format(casting.DateLayout)}
}

// Performance is the wire form of casting.Performance.
type Performance struct {
	ID      int64         `json:"id"`
	ActorID int64         `json:"actor_id"`
	MovieID int64         `json:"movie_id"`
	Actor   casting.Actor `json:"actor"`
	Movie   Movie         `json:"movie"`
}

func toPerformance(p casting.Performance) Performance {
	return Performance{
		ID:      p.ID,
		ActorID: p.ActorID,
		MovieID: p.MovieID,
		Actor:   p.Actor,
		Movie:   toMovie(p.Movie),
	}
}

type ListActorsResponse struct {
	Success     bool            `json:"success"`
	Actors      []casting.Actor `json:"actors"`
	TotalActors int             `json:"total_actors"`
	Page        int             `json:"page"`
}

type ActorResponse struct {
	Success bool          `json:"success"`
	Actor   casting.Actor `json:"actor"`
}

type ListMoviesResponse struct {
	Success     bool    `json:"success"`
	Movies      []Movie `json:"movies"`
	TotalMovies int     `json:"total_movies"`
	Page        int     `json:"page"`
}

type MovieResponse struct {
	Success bool  `json:"success"`
	Movie   Movie `json:"movie"`
}

type ListPerformancesResponse struct {
	Success           bool          `json:"success"`
	Performances      []Performance `json:"performances"`
	TotalPerformances int           `json:"total_performances"`
	Page              int           `json:"page"`
}

type PerformanceResponse struct {
	Success     bool        `json:"success"`
	Performance Performance `json:"performance"`
}

// DeleteResponse reports the ID of the removed record.
type DeleteResponse struct {
	Success bool  `json:"success"`
	Deleted int64 `json:"deleted"`
}

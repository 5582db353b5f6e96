// Package casting holds the agency's domain: actors, movies and the
// performances that link them, the storage contract and the service that
// runs each operation in a unit of work.
package casting

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format of Movie.ReleaseDate.
const DateLayout = "2006-01-02"

// Actor is a performer that can be cast in movies.
type Actor struct {
	ID     int64  `db:"id" json:"id"`
	Name   string `db:"name" json:"name"`
	Age    int    `db:"age" json:"age"`
	Gender string `db:"gender" json:"gender"`
}

// Movie is a production actors are cast in. ReleaseDate carries no time of day.
type Movie struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	ReleaseDate time.Time `db:"release_date" json:"release_date"`
}

// Performance casts an actor in a movie. Deleting either side deletes it.
type Performance struct {
	ID      int64 `json:"id"`
	ActorID int64 `json:"actor_id"`
	MovieID int64 `json:"movie_id"`
	Actor   Actor `json:"actor"`
	Movie   Movie `json:"movie"`
}

// ActorPatch holds the fields of a partial actor update. Nil fields are kept.
type ActorPatch struct {
	Name   *string
	Age    *int
	Gender *string
}

// Apply returns a with the patch's non-nil fields set.
func (p ActorPatch) Apply(a Actor) Actor {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Age != nil {
		a.Age = *p.Age
	}
	if p.Gender != nil {
		a.Gender = *p.Gender
	}
	return a
}

// MoviePatch holds the fields of a partial movie update. Nil fields are kept.
type MoviePatch struct {
	Title       *string
	ReleaseDate *time.Time
}

// Apply returns m with the patch's non-nil fields set.
func (p MoviePatch) Apply(m Movie) Movie {
	if p.Title != nil {
		m.Title = *p.Title
	}
	if p.ReleaseDate != nil {
		m.ReleaseDate = *p.ReleaseDate
	}
	return m
}

// Validate reports missing or out-of-range actor fields.
func (a Actor) Validate() error {
	switch {
	case strings.TrimSpace(a.Name) == "":
		return fmt.Errorf("actor name: %w", ErrInvalid)
	case a.Age < 0:
		return fmt.Errorf("actor age %d: %w", a.Age, ErrInvalid)
	case strings.TrimSpace(a.Gender) == "":
		return fmt.Errorf("actor gender: %w", ErrInvalid)
	}
	return nil
}

// Validate reports missing movie fields.
func (m Movie) Validate() error {
	switch {
	case strings.TrimSpace(m.Title) == "":
		return fmt.Errorf("movie title: %w", ErrInvalid)
	case m.ReleaseDate.IsZero():
		return fmt.Errorf("movie release date: %w", ErrInvalid)
	}
	return nil
}

// ParseDate parses a DateLayout string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("release date %q: %w", s, ErrInvalid)
	}
	return d, nil
}

// TruncateDate drops the time of day and location from t.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

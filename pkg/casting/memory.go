package casting

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/deepworx/casting-agency/pkg/postgres"
)

type performanceRecord struct {
	id      int64
	actorID int64
	movieID int64
}

// MemoryStore is an in-process Store for tests and local development.
type MemoryStore struct {
	mu           sync.RWMutex
	actors       map[int64]Actor
	movies       map[int64]Movie
	performances map[int64]performanceRecord
	nextID       map[string]int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		actors:       make(map[int64]Actor),
		movies:       make(map[int64]Movie),
		performances: make(map[int64]performanceRecord),
		nextID:       make(map[string]int64),
	}
}

func (s *MemoryStore) allocate(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

// paginate returns the page of m ordered by key along with the total count.
func paginate[T any](m map[int64]T, page Page) ([]T, int) {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	total := len(ids)
	start := min(max(page.Offset, 0), total)
	end := total
	if page.Limit > 0 {
		end = min(start+page.Limit, total)
	}

	out := make([]T, 0, end-start)
	for _, id := range ids[start:end] {
		out = append(out, m[id])
	}
	return out, total
}

func (s *MemoryStore) ListActors(_ context.Context, _ postgres.Transaction, page Page) ([]Actor, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	actors, total := paginate(s.actors, page)
	return actors, total, nil
}

func (s *MemoryStore) GetActor(_ context.Context, _ postgres.Transaction, id int64) (Actor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.actors[id]
	if !ok {
		return Actor{}, fmt.Errorf("actor %d: %w", id, ErrNotFound)
	}
	return a, nil
}

func (s *MemoryStore) CreateActor(_ context.Context, _ postgres.Transaction, a Actor) (Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.allocate("actors")
	s.actors[a.ID] = a
	return a, nil
}

func (s *MemoryStore) UpdateActor(_ context.Context, _ postgres.Transaction, a Actor) (Actor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actors[a.ID]; !ok {
		return Actor{}, fmt.Errorf("actor %d: %w", a.ID, ErrNotFound)
	}
	s.actors[a.ID] = a
	return a, nil
}

func (s *MemoryStore) DeleteActor(_ context.Context, _ postgres.Transaction, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actors[id]; !ok {
		return fmt.Errorf("actor %d: %w", id, ErrNotFound)
	}
	delete(s.actors, id)
	for pid, p := range s.performances {
		if p.actorID == id {
			delete(s.performances, pid)
		}
	}
	return nil
}

func (s *MemoryStore) ListMovies(_ context.Context, _ postgres.Transaction, page Page) ([]Movie, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	movies, total := paginate(s.movies, page)
	return movies, total, nil
}

func (s *MemoryStore) GetMovie(_ context.Context, _ postgres.Transaction, id int64) (Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movies[id]
	if !ok {
		return Movie{}, fmt.Errorf("movie %d: %w", id, ErrNotFound)
	}
	return m, nil
}

func (s *MemoryStore) CreateMovie(_ context.Context, _ postgres.Transaction, m Movie) (Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.allocate("movies")
	m.ReleaseDate = TruncateDate(m.ReleaseDate)
	s.movies[m.ID] = m
	return m, nil
}

func (s *MemoryStore) UpdateMovie(_ context.Context, _ postgres.Transaction, m Movie) (Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[m.ID]; !ok {
		return Movie{}, fmt.Errorf("movie %d: %w", m.ID, ErrNotFound)
	}
	m.ReleaseDate = TruncateDate(m.ReleaseDate)
	s.movies[m.ID] = m
	return m, nil
}

func (s *MemoryStore) DeleteMovie(_ context.Context, _ postgres.Transaction, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[id]; !ok {
		return fmt.Errorf("movie %d: %w", id, ErrNotFound)
	}
	delete(s.movies, id)
	for pid, p := range s.performances {
		if p.movieID == id {
			delete(s.performances, pid)
		}
	}
	return nil
}

func (s *MemoryStore) ListPerformances(_ context.Context, _ postgres.Transaction, page Page) ([]Performance, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, total := paginate(s.performances, page)
	out := make([]Performance, 0, len(records))
	for _, r := range records {
		out = append(out, s.resolve(r))
	}
	return out, total, nil
}

func (s *MemoryStore) CreatePerformance(_ context.Context, _ postgres.Transaction, actorID, movieID int64) (Performance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.actors[actorID]; !ok {
		return Performance{}, fmt.Errorf("actor %d: %w", actorID, ErrNotFound)
	}
	if _, ok := s.movies[movieID]; !ok {
		return Performance{}, fmt.Errorf("movie %d: %w", movieID, ErrNotFound)
	}
	r := performanceRecord{id: s.allocate("performances"), actorID: actorID, movieID: movieID}
	s.performances[r.id] = r
	return s.resolve(r), nil
}

func (s *MemoryStore) DeletePerformance(_ context.Context, _ postgres.Transaction, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.performances[id]; !ok {
		return fmt.Errorf("performance %d: %w", id, ErrNotFound)
	}
	delete(s.performances, id)
	return nil
}

// resolve joins a record with its actor and movie. Callers hold s.mu.
func (s *MemoryStore) resolve(r performanceRecord) Performance {
	return Performance{
		ID:      r.id,
		ActorID: r.actorID,
		MovieID: r.movieID,
		Actor:   s.actors[r.actorID],
		Movie:   s.movies[r.movieID],
	}
}

// Check always reports the store as ready. Implements grpchealth.HealthChecker.
func (s *MemoryStore) Check(context.Context) bool { return true }

var _ Store = (*MemoryStore)(nil)

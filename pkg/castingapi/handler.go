package castingapi

import (
	"context"
	"net/http"

	"connectrpc.com/connect"

	"github.com/deepworx/casting-agency/pkg/casting"
)

// Handler serves the casting procedures.
type Handler struct {
	svc *casting.Service
}

// NewHandler creates a Handler for svc.
func NewHandler(svc *casting.Service) *Handler {
	return &Handler{svc: svc}
}

// Mount registers every procedure on mux. The JSON codec is always added.
func (h *Handler) Mount(mux *http.ServeMux, opts ...connect.HandlerOption) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	unary(mux, ListActorsProcedure, h.ListActors, opts)
	unary(mux, GetActorProcedure, h.GetActor, opts)
	unary(mux, CreateActorProcedure, h.CreateActor, opts)
	unary(mux, UpdateActorProcedure, h.UpdateActor, opts)
	unary(mux, DeleteActorProcedure, h.DeleteActor, opts)
	unary(mux, ListMoviesProcedure, h.ListMovies, opts)
	unary(mux, GetMovieProcedure, h.GetMovie, opts)
	unary(mux, CreateMovieProcedure, h.CreateMovie, opts)
	unary(mux, UpdateMovieProcedure, h.UpdateMovie, opts)
	unary(mux, DeleteMovieProcedure, h.DeleteMovie, opts)
	unary(mux, ListPerformancesProcedure, h.ListPerformances, opts)
	unary(mux, CreatePerformanceProcedure, h.CreatePerformance, opts)
	unary(mux, DeletePerformanceProcedure, h.DeletePerformance, opts)
}

func unary[Req, Res any](mux *http.ServeMux, procedure string, fn func(context.Context, *Req) (*Res, error), opts []connect.HandlerOption) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			res, err := fn(ctx, req.Msg)
			if err != nil {
				return nil, err
			}
			return connect.NewResponse(res), nil
		},
		opts...,
	))
}

func firstPage(page int) int {
	if page == 0 {
		return 1
	}
	return page
}

func (h *Handler) ListActors(ctx context.Context, req *ListRequest) (*ListActorsResponse, error) {
	list, err := h.svc.ListActors(ctx, firstPage(req.Page))
	if err != nil {
		return nil, err
	}
	return &ListActorsResponse{Success: true, Actors: list.Items, TotalActors: list.Total, Page: list.Page}, nil
}

func (h *Handler) GetActor(ctx context.Context, req *IDRequest) (*ActorResponse, error) {
	a, err := h.svc.GetActor(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &ActorResponse{Success: true, Actor: a}, nil
}

func (h *Handler) CreateActor(ctx context.Context, req *CreateActorRequest) (*ActorResponse, error) {
	a, err := h.svc.CreateActor(ctx, casting.Actor{Name: req.Name, Age: req.Age, Gender: req.Gender})
	if err != nil {
		return nil, err
	}
	return &ActorResponse{Success: true, Actor: a}, nil
}

func (h *Handler) UpdateActor(ctx context.Context, req *UpdateActorRequest) (*ActorResponse, error) {
	a, err := h.svc.UpdateActor(ctx, req.ID, casting.ActorPatch{Name: req.Name, Age: req.Age, Gender: req.Gender})
	if err != nil {
		return nil, err
	}
	return &ActorResponse{Success: true, Actor: a}, nil
}

func (h *Handler) DeleteActor(ctx context.Context, req *IDRequest) (*DeleteResponse, error) {
	if err := h.svc.DeleteActor(ctx, req.ID); err != nil {
		return nil, err
	}
	return &DeleteResponse{Success: true, Deleted: req.ID}, nil
}

func (h *Handler) ListMovies(ctx context.Context, req *ListRequest) (*ListMoviesResponse, error) {
	list, err := h.svc.ListMovies(ctx, firstPage(req.Page))
	if err != nil {
		return nil, err
	}
	movies := make([]Movie, 0, len(list.Items))
	for _, m := range list.Items {
		movies = append(movies, toMovie(m))
	}
	return &ListMoviesResponse{Success: true, Movies: movies, TotalMovies: list.Total, Page: list.Page}, nil
}

func (h *Handler) GetMovie(ctx context.Context, req *IDRequest) (*MovieResponse, error) {
	m, err := h.svc.GetMovie(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &MovieResponse{Success: true, Movie: toMovie(m)}, nil
}

func (h *Handler) CreateMovie(ctx context.Context, req *CreateMovieRequest) (*MovieResponse, error) {
	release, err := casting.ParseDate(req.ReleaseDate)
	if err != nil {
		return nil, err
	}
	m, err := h.svc.CreateMovie(ctx, casting.Movie{Title: req.Title, ReleaseDate: release})
	if err != nil {
		return nil, err
	}
	return &MovieResponse{Success: true, Movie: toMovie(m)}, nil
}

func (h *Handler) UpdateMovie(ctx context.Context, req *UpdateMovieRequest) (*MovieResponse, error) {
	patch := casting.MoviePatch{Title: req.Title}
	if req.ReleaseDate != nil {
		release, err := casting.ParseDate(*req.ReleaseDate)
		if err != nil {
			return nil, err
		}
		patch.ReleaseDate = &release
	}
	m, err := h.svc.UpdateMovie(ctx, req.ID, patch)
	if err != nil {
		return nil, err
	}
	return &MovieResponse{Success: true, Movie: toMovie(m)}, nil
}

func (h *Handler) DeleteMovie(ctx context.Context, req *IDRequest) (*DeleteResponse, error) {
	if err := h.svc.DeleteMovie(ctx, req.ID); err != nil {
		return nil, err
	}
	return &DeleteResponse{Success: true, Deleted: req.ID}, nil
}

func (h *Handler) ListPerformances(ctx context.Context, req *ListRequest) (*ListPerformancesResponse, error) {
	list, err := h.svc.ListPerformances(ctx, firstPage(req.Page))
	if err != nil {
		return nil, err
	}
	perfs := make([]Performance, 0, len(list.Items))
	for _, p := range list.Items {
		perfs = append(perfs, toPerformance(p))
	}
	return &ListPerformancesResponse{Success: true, Performances: perfs, TotalPerformances: list.Total, Page: list.Page}, nil
}

func (h *Handler) CreatePerformance(ctx context.Context, req *CreatePerformanceRequest) (*PerformanceResponse, error) {
	p, err := h.svc.CreatePerformance(ctx, req.ActorID, req.MovieID)
	if err != nil {
		return nil, err
	}
	return &PerformanceResponse{Success: true, Performance: toPerformance(p)}, nil
}

func (h *Handler) DeletePerformance(ctx context.Context, req *IDRequest) (*DeleteResponse, error) {
	if err := h.svc.DeletePerformance(ctx, req.ID); err != nil {
		return nil, err
	}
	return &DeleteResponse{Success: true, Deleted: req.ID}, nil
}

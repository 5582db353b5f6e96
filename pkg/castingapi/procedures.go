// Package castingapi exposes the casting service over Connect with a JSON
// codec, and assembles the HTTP mux with health and identity endpoints.
package castingapi

import (
	"github.com/deepworx/casting-agency/pkg/casting"
	"github.com/deepworx/casting-agency/pkg/connectrpc/authz"
)

// ServiceName is the fully-qualified Connect service name.
const ServiceName = "casting.v1.CastingService"

// Procedure paths.
const (
	ListActorsProcedure        = "/" + ServiceName + "/ListActors"
	GetActorProcedure          = "/" + ServiceName + "/GetActor"
	CreateActorProcedure       = "/" + ServiceName + "/CreateActor"
	UpdateActorProcedure       = "/" + ServiceName + "/UpdateActor"
	DeleteActorProcedure       = "/" + ServiceName + "/DeleteActor"
	ListMoviesProcedure        = "/" + ServiceName + "/ListMovies"
	GetMovieProcedure          = "/" + ServiceName + "/GetMovie"
	CreateMovieProcedure       = "/" + ServiceName + "/CreateMovie"
	UpdateMovieProcedure       = "/" + ServiceName + "/UpdateMovie"
	DeleteMovieProcedure       = "/" + ServiceName + "/DeleteMovie"
	ListPerformancesProcedure  = "/" + ServiceName + "/ListPerformances"
	CreatePerformanceProcedure = "/" + ServiceName + "/CreatePerformance"
	DeletePerformanceProcedure = "/" + ServiceName + "/DeletePerformance"
)

// Rules maps every procedure to the permission it requires.
func Rules() authz.Rules {
	return authz.Rules{
		ListActorsProcedure:        casting.PermGetActors,
		GetActorProcedure:          casting.PermGetActors,
		CreateActorProcedure:       casting.PermPostActors,
		UpdateActorProcedure:       casting.PermPatchActors,
		DeleteActorProcedure:       casting.PermDeleteActors,
		ListMoviesProcedure:        casting.PermGetMovies,
		GetMovieProcedure:          casting.PermGetMovies,
		CreateMovieProcedure:       casting.PermPostMovies,
		UpdateMovieProcedure:       casting.PermPatchMovies,
		DeleteMovieProcedure:       casting.PermDeleteMovies,
		ListPerformancesProcedure:  casting.PermGetPerformances,
		CreatePerformanceProcedure: casting.PermPostPerformances,
		DeletePerformanceProcedure: casting.PermDeletePerformances,
	}
}

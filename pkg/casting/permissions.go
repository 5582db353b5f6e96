package casting

// Permissions granted through the access token's scope claim.
const (
	PermGetActors    = "get:actors"
	PermPostActors   = "post:actors"
	PermPatchActors  = "patch:actors"
	PermDeleteActors = "delete:actors"

	PermGetMovies    = "get:movies"
	PermPostMovies   = "post:movies"
	PermPatchMovies  = "patch:movies"
	PermDeleteMovies = "delete:movies"

	PermGetPerformances    = "get:performances"
	PermPostPerformances   = "post:performances"
	PermDeletePerformances = "delete:performances"
)

// Role permission sets as configured in the identity provider.
var (
	CastingAssistant = []string{
		PermGetActors, PermGetMovies, PermGetPerformances,
	}
	CastingDirector = append(append([]string{}, CastingAssistant...),
		PermPostActors, PermPatchActors, PermDeleteActors, PermPatchMovies,
		PermPostPerformances, PermDeletePerformances,
	)
	ExecutiveProducer = append(append([]string{}, CastingDirector...),
		PermPostMovies, PermDeleteMovies,
	)
)

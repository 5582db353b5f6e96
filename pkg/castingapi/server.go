package castingapi

import (
	"net/http"
	"time"

	"connectrpc.com/connect"
	json "github.com/goccy/go-json"

	"github.com/deepworx/casting-agency/pkg/grpchealth"
	"github.com/deepworx/casting-agency/pkg/jwtauth"
)

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: ":8080"
	Addr string `koanf:"addr"`

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 5s
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`

	// IdleTimeout closes idle keep-alive connections.
	// Default: 2m
	IdleTimeout time.Duration `koanf:"idle_timeout"`
}

// DefaultServerConfig returns a ServerConfig with sensible default values.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// NewServer returns an http.Server for h that accepts HTTP/1.1 and
// cleartext HTTP/2, so gRPC clients can reach the Connect handlers.
func NewServer(cfg ServerConfig, h http.Handler) *http.Server {
	var protocols http.Protocols
	protocols.SetHTTP1(true)
	protocols.SetUnencryptedHTTP2(true)

	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		Protocols:         &protocols,
	}
}

// Routes are the components mounted by NewMux. Health is optional.
type Routes struct {
	Handler *Handler
	Guard   *jwtauth.Guard
	Health  *grpchealth.Aggregator

	// Options apply to every Connect handler, typically the interceptor chain.
	Options []connect.HandlerOption
}

// NewMux mounts the casting procedures, GET /whoami, the gRPC health service,
// GET /readyz and GET /healthz.
func NewMux(r Routes) *http.ServeMux {
	mux := http.NewServeMux()
	r.Handler.Mount(mux, r.Options...)

	mux.Handle("GET /whoami", r.Guard.Require("", http.HandlerFunc(whoami)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	if r.Health != nil {
		mux.Handle(r.Health.Handler())
		mux.Handle("GET /readyz", r.Health.ReadinessHandler())
	}
	return mux
}

type whoamiResponse struct {
	Success     bool           `json:"success"`
	Subject     string         `json:"subject"`
	Permissions []string       `json:"permissions"`
	Claims      jwtauth.Claims `json:"claims"`
}

func whoami(w http.ResponseWriter, r *http.Request) {
	claims, _ := jwtauth.ClaimsFromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(whoamiResponse{
		Success:     true,
		Subject:     claims.Subject(),
		Permissions: claims.Scopes(),
		Claims:      claims,
	})
}

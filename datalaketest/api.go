package datalaketest

import (
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sagarc03/datalake"
	"github.com/sagarc03/datalake/keybackend"
)

// Config configures an API.
type Config struct {
	// EndpointHost is the host tokens must be signed for.
	EndpointHost string
	// Keys maps access keys to secret keys. Empty disables authentication.
	Keys map[string]string
	// RequiredMetadata is returned by the required_metadata operation.
	RequiredMetadata []string
	Now              func() time.Time
	Logger           *slog.Logger
}

// Faults makes selected upload steps fail with a 500.
type Faults struct {
	FailRegister bool
	FailUpload   bool
	FailConfirm  bool
}

// Call is one request the API received.
type Call struct {
	Method string
	Path   string
	Auth   string
}

// API is an in-memory data lake API.
type API struct {
	cfg      Config
	verifier *datalake.TokenVerifier
	logger   *slog.Logger

	mu       sync.Mutex
	faults   Faults
	calls    []Call
	packages map[string]*Package
	cart     map[string]*CartItem
	blobs    map[string][]byte
	uploads  map[string]string // upload token -> dataset id
}

// New creates an API.
func New(cfg Config) *API {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RequiredMetadata == nil {
		cfg.RequiredMetadata = []string{"title", "description", "license"}
	}

	a := &API{
		cfg:      cfg,
		logger:   cfg.Logger,
		packages: make(map[string]*Package),
		cart:     make(map[string]*CartItem),
		blobs:    make(map[string][]byte),
		uploads:  make(map[string]string),
	}

	if len(cfg.Keys) > 0 {
		a.verifier = datalake.NewTokenVerifier(cfg.EndpointHost, keybackend.NewMapSecretStore(cfg.Keys))
		a.verifier.Now = cfg.Now
	}

	return a
}

// SetFaults replaces the active fault injection settings.
func (a *API) SetFaults(f Faults) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.faults = f
}

// Calls returns the requests received so far.
func (a *API) Calls() []Call {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Call(nil), a.calls...)
}

// Blob returns the bytes uploaded for a dataset.
func (a *API) Blob(datasetID string) ([]byte, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	b, ok := a.blobs[datasetID]
	return b, ok
}

// Packages returns a snapshot of all packages sorted by creation time.
func (a *API) Packages() []Package {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Package, 0, len(a.packages))
	for _, p := range a.packages {
		out = append(out, p.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Handler returns the API router.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(a.recordCall)

	// one-time upload URLs carry their own token and are not signed
	r.Put("/upload/{datasetId}", a.handleUpload)

	r.Route("/prod", func(r chi.Router) {
		r.Use(AuthMiddleware(a.verifier, a.logger))

		r.Post("/packages", a.handlePackagesOperation)
		r.Post("/packages/new", a.handleCreatePackage)
		r.Get("/packages/{packageId}", a.handleDescribePackage)
		r.Put("/packages/{packageId}", a.handleUpdatePackage)
		r.Delete("/packages/{packageId}", a.handleDeletePackage)

		r.Get("/packages/{packageId}/datasets", a.handleListDatasets)
		r.Post("/packages/{packageId}/datasets/new", a.handleRegisterDataset)
		r.Get("/packages/{packageId}/datasets/{datasetId}", a.handleDescribeDataset)
		r.Delete("/packages/{packageId}/datasets/{datasetId}", a.handleDeleteDataset)

		r.Post("/packages/{packageId}/metadata/new", a.handleCreateMetadata)
		r.Get("/packages/{packageId}/metadata", a.handleDescribeMetadata)

		r.Get("/search", a.handleSearch)

		r.Post("/cart/new", a.handleAddCartItem)
		r.Post("/cart/", a.handleCartOperation)
		r.Post("/cart", a.handleCartOperation)
		r.Get("/cart/", a.handleDescribeCart)
		r.Get("/cart", a.handleDescribeCart)
		r.Get("/cart/{cartItemId}", a.handleDescribeCartItem)
		r.Delete("/cart/{cartItemId}", a.handleRemoveCartItem)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusNotFound, "not_found", "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	return r
}

func (a *API) recordCall(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		a.calls = append(a.calls, Call{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get(datalake.AuthHeader)})
		a.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (a *API) fault() Faults {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.faults
}

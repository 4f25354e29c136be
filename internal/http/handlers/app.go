package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"diagramgen/internal/conductor"
	"diagramgen/internal/domain"
	"diagramgen/internal/jobs"
)

// App bundles the dependencies shared by all HTTP handlers.
type App struct {
	Logger    zerolog.Logger
	Conductor *conductor.Conductor
	Store     *jobs.Store
	Catalog   *domain.Catalog
}

func NewApp(logger zerolog.Logger, cond *conductor.Conductor, store *jobs.Store, catalog *domain.Catalog) *App {
	return &App{Logger: logger, Conductor: cond, Store: store, Catalog: catalog}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}

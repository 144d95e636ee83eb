package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mfolders/internal/folders"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// iconsDir is where uploaded folder icons are stored.
func NewRouter(engine *folders.Engine, authEnabled bool, token string, sseHandler http.Handler, iconsDir string) chi.Router {
	h := NewHandler(engine)
	ih := NewIconHandler(iconsDir)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/tree", h.Tree)

	// Folders.
	r.Post("/folders", h.CreateFolder)
	r.Route("/folders/{id}", func(r chi.Router) {
		r.Get("/", h.GetFolder)
		r.Patch("/", h.UpdateFolder)
		r.Delete("/", h.DeleteFolder)
		r.Post("/move", h.MoveFolder)
		r.Get("/move-targets", h.MoveTargets)
		r.Post("/toggle", h.ToggleFolder)
		r.Post("/permission", h.SetFolderPermission)
		r.Post("/entries", h.AddEntry)
		r.Delete("/entries/*", h.RemoveEntry)
	})

	// Entries.
	r.Get("/entries/grouped", h.GroupedEntries)
	r.Delete("/entries/*", h.DeleteEntry)

	r.Get("/search", h.Search)
	r.Post("/reconcile", h.Reconcile)

	// Import / export.
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)

	// User folders.
	r.Get("/settings/user-folder", h.GetUserFolderLocation)
	r.Put("/settings/user-folder", h.SetUserFolderLocation)
	r.Post("/user-folders", h.CreateUserFolders)

	r.Post("/icons", ih.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

package api

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/mfolders/internal/checksum"
	"github.com/starford/mfolders/internal/folders"
	"github.com/starford/mfolders/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	engine *folders.Engine
}

// NewHandler creates a new Handler.
func NewHandler(engine *folders.Engine) *Handler {
	return &Handler{engine: engine}
}

// entryID extracts the entry id from the URL wildcard. Entry ids may contain
// slashes, sent raw or encoded (e.g. spells%2Fheal).
func entryID(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Tree handles GET /api/tree.
//
//	@Summary		Get the visible folder tree
//	@Tags			folders
//	@Produce		json
//	@Success		200	{object}	TreeResponse
//	@Security		BearerAuth
//	@Router			/tree [get]
func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	roots, err := h.engine.Tree(r.Context())
	if err != nil {
		writeError(w, "tree", err)
		return
	}
	writeJSON(w, http.StatusOK, TreeResponse{Folders: roots})
}

// GetFolder handles GET /api/folders/{id}.
//
//	@Summary		Get a single folder
//	@Tags			folders
//	@Produce		json
//	@Param			id	path		string	true	"Folder id"
//	@Success		200	{object}	FolderResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{id} [get]
func (h *Handler) GetFolder(w http.ResponseWriter, r *http.Request) {
	f, err := h.engine.Folder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get folder", err)
		return
	}
	writeJSON(w, http.StatusOK, toFolderResponse(f))
}

// CreateFolder handles POST /api/folders.
//
//	@Summary		Create a folder
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateFolderRequest	true	"Folder to create"
//	@Success		201		{object}	FolderResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders [post]
func (h *Handler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "create folder", err)
		return
	}
	f, err := h.engine.CreateFolder(r.Context(), req)
	if err != nil {
		writeError(w, "create folder", err)
		return
	}
	writeJSON(w, http.StatusCreated, toFolderResponse(f))
}

// UpdateFolder handles PATCH /api/folders/{id}.
//
//	@Summary		Update a folder's title, colors, icon or player default
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Folder id"
//	@Param			body	body		UpdateFolderRequest	true	"Fields to change"
//	@Success		200		{object}	FolderResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{id} [patch]
func (h *Handler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	var req UpdateFolderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "update folder", err)
		return
	}
	f, err := h.engine.UpdateFolder(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeError(w, "update folder", err)
		return
	}
	writeJSON(w, http.StatusOK, toFolderResponse(f))
}

// DeleteFolder handles DELETE /api/folders/{id}. With ?contents=delete the
// folder's entries are deleted from the host too.
//
//	@Summary		Delete a folder
//	@Tags			folders
//	@Param			id			path	string	true	"Folder id"
//	@Param			contents	query	string	false	"Entry policy"	Enums(keep, delete)
//	@Success		204			"Folder deleted"
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{id} [delete]
func (h *Handler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	hard := r.URL.Query().Get("contents") == "delete"
	if err := h.engine.DeleteFolder(r.Context(), chi.URLParam(r, "id"), hard); err != nil {
		writeError(w, "delete folder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveFolder handles POST /api/folders/{id}/move.
func (h *Handler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	var req MoveFolderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "move folder", err)
		return
	}
	if err := h.engine.MoveFolder(r.Context(), chi.URLParam(r, "id"), req.Dest); err != nil {
		writeError(w, "move folder", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveTargets handles GET /api/folders/{id}/move-targets.
func (h *Handler) MoveTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := h.engine.MoveTargets(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "move targets", err)
		return
	}
	writeJSON(w, http.StatusOK, MoveTargetsResponse{Targets: targets})
}

// AddEntry handles POST /api/folders/{id}/entries.
func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "add entry", err)
		return
	}
	if req.EntryID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("entry_id is required"))
		return
	}
	if err := h.engine.AddEntry(r.Context(), chi.URLParam(r, "id"), req.EntryID); err != nil {
		writeError(w, "add entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveEntry handles DELETE /api/folders/{id}/entries/*. Without ?hard=true
// the entry is moved to the hidden folder; with it the macro is deleted.
func (h *Handler) RemoveEntry(w http.ResponseWriter, r *http.Request) {
	id := entryID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("entry id is required"))
		return
	}
	hard, _ := strconv.ParseBool(r.URL.Query().Get("hard"))
	if err := h.engine.RemoveEntry(r.Context(), chi.URLParam(r, "id"), id, hard); err != nil {
		writeError(w, "remove entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetFolderPermission handles POST /api/folders/{id}/permission.
//
//	@Summary		Apply a permission level to every entry in a folder
//	@Tags			folders
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Folder id"
//	@Param			body	body		PermissionRequest	true	"Permission level"
//	@Success		200		{object}	PermissionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/folders/{id}/permission [post]
func (h *Handler) SetFolderPermission(w http.ResponseWriter, r *http.Request) {
	var req PermissionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "set permission", err)
		return
	}
	level, ok := models.ParsePermission(req.Level)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("level must be one of none, limited, observer, owner"))
		return
	}
	n, err := h.engine.SetFolderPermission(r.Context(), chi.URLParam(r, "id"), level)
	if err != nil {
		writeError(w, "set permission", err)
		return
	}
	writeJSON(w, http.StatusOK, PermissionResponse{Level: level.String(), Updated: n})
}

// ToggleFolder handles POST /api/folders/{id}/toggle.
func (h *Handler) ToggleFolder(w http.ResponseWriter, r *http.Request) {
	open, err := h.engine.ToggleFolder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "toggle folder", err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{Expanded: open})
}

// DeleteEntry handles DELETE /api/entries/*.
//
//	@Summary		Delete an entry and its host document
//	@Tags			entries
//	@Param			id	path	string	true	"Entry id"
//	@Success		204	"Entry deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entries/{id} [delete]
func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := entryID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("entry id is required"))
		return
	}
	if err := h.engine.DeleteEntry(r.Context(), id); err != nil {
		writeError(w, "delete entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GroupedEntries handles GET /api/entries/grouped.
func (h *Handler) GroupedEntries(w http.ResponseWriter, r *http.Request) {
	g, err := h.engine.GroupedEntries(r.Context())
	if err != nil {
		writeError(w, "grouped entries", err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// Search handles GET /api/search.
//
//	@Summary		Search entries by name
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	true	"Search query"
//	@Success		200	{object}	models.SearchResult
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if strings.TrimSpace(q) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	res, err := h.engine.Search(r.Context(), q)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Reconcile handles POST /api/reconcile.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	rep, err := h.engine.Reconcile(r.Context(), true)
	if err != nil {
		writeError(w, "reconcile", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Export handles GET /api/export.
//
//	@Summary		Export the flat folder map
//	@Tags			transfer
//	@Produce		json
//	@Success		200	{object}	models.FolderMap
//	@Security		BearerAuth
//	@Router			/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.engine.ExportState(r.Context())
	if err != nil {
		writeError(w, "export", err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="mfolders.json"`)
	w.Header().Set("ETag", `"`+checksum.Short(data)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Import handles POST /api/import. The body is an exported folder map.
//
//	@Summary		Replace the folder map
//	@Tags			transfer
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	models.ReconcileReport
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	rep, err := h.engine.ImportState(r.Context(), body)
	if err != nil {
		writeError(w, "import", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// GetUserFolderLocation handles GET /api/settings/user-folder.
func (h *Handler) GetUserFolderLocation(w http.ResponseWriter, r *http.Request) {
	id, err := h.engine.UserFolderLocation(r.Context())
	if err != nil {
		writeError(w, "user folder location", err)
		return
	}
	writeJSON(w, http.StatusOK, UserFolderLocationRequest{FolderID: id})
}

// SetUserFolderLocation handles PUT /api/settings/user-folder.
func (h *Handler) SetUserFolderLocation(w http.ResponseWriter, r *http.Request) {
	var req UserFolderLocationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, "set user folder location", err)
		return
	}
	if err := h.engine.SetUserFolderLocation(r.Context(), req.FolderID); err != nil {
		writeError(w, "set user folder location", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateUserFolders handles POST /api/user-folders.
func (h *Handler) CreateUserFolders(w http.ResponseWriter, r *http.Request) {
	created, err := h.engine.CreateUserFolders(r.Context())
	if err != nil {
		writeError(w, "create user folders", err)
		return
	}
	resp := UserFoldersResponse{Folders: make([]FolderResponse, 0, len(created))}
	for _, f := range created {
		resp.Folders = append(resp.Folders, toFolderResponse(f))
	}
	writeJSON(w, http.StatusCreated, resp)
}

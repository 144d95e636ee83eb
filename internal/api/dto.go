package api

import (
	"github.com/starford/mfolders/internal/folders"
	"github.com/starford/mfolders/internal/models"
)

// CreateFolderRequest is the request body for creating a folder.
type CreateFolderRequest = folders.FolderInput

// UpdateFolderRequest is the request body for updating a folder's display fields.
type UpdateFolderRequest = folders.FolderUpdate

// MoveFolderRequest names the new parent. An empty Dest or "root" moves the
// folder to the root.
type MoveFolderRequest struct {
	Dest string `json:"dest" example:"mfolder_a1B2c3D4e5"`
}

// AddEntryRequest is the request body for placing an entry in a folder.
type AddEntryRequest struct {
	EntryID string `json:"entry_id" example:"spells/heal" validate:"required"`
}

// PermissionRequest names the level applied to a folder's entries, either
// by name or by number.
type PermissionRequest struct {
	Level string `json:"level" example:"observer" validate:"required"`
}

// PermissionResponse reports how many entries took the new level.
type PermissionResponse struct {
	Level   string `json:"level" example:"observer"`
	Updated int    `json:"updated" example:"3"`
}

// UserFolderLocationRequest selects the parent of user folders.
type UserFolderLocationRequest struct {
	FolderID string `json:"folder_id" example:"mfolder_a1B2c3D4e5"`
}

// FolderResponse is the API form of a folder.
type FolderResponse struct {
	ID            string   `json:"id" example:"mfolder_a1B2c3D4e5" validate:"required"`
	Title         string   `json:"title" example:"Combat" validate:"required"`
	Color         string   `json:"color" example:"#000000"`
	FontColor     string   `json:"font_color" example:"#FFFFFF"`
	Icon          string   `json:"icon,omitempty" example:"/icons/sword.png"`
	Path          []string `json:"path"`
	Content       []string `json:"content"`
	Children      []string `json:"children"`
	PlayerDefault string   `json:"player_default,omitempty"`
	Expanded      bool     `json:"expanded"`
}

func toFolderResponse(f models.Folder) FolderResponse {
	return FolderResponse{
		ID:            f.ID,
		Title:         f.Title,
		Color:         f.Color,
		FontColor:     f.FontColor,
		Icon:          f.Icon,
		Path:          nonNil(f.Path),
		Content:       nonNil(f.Content),
		Children:      nonNil(f.Children),
		PlayerDefault: f.PlayerDefault,
		Expanded:      f.Expanded,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// TreeResponse wraps the visible folder forest.
type TreeResponse struct {
	Folders []*models.TreeNode `json:"folders" validate:"required"`
}

// MoveTargetsResponse wraps the legal destinations of a folder move.
type MoveTargetsResponse struct {
	Targets []models.MoveTarget `json:"targets" validate:"required"`
}

// ToggleResponse reports a folder's expanded state after a toggle.
type ToggleResponse struct {
	Expanded bool `json:"expanded"`
}

// UserFoldersResponse lists folders created for users.
type UserFoldersResponse struct {
	Folders []FolderResponse `json:"folders" validate:"required"`
}

// IconUploadResponse is returned after a successful icon upload.
type IconUploadResponse struct {
	Filename string `json:"filename" example:"sword.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/icons/sword.png" validate:"required"`
}

// Package models defines the domain types for the folder engine.
package models

import "slices"

// Reserved folder ids.
const (
	DefaultFolderID = "default"
	HiddenFolderID  = "hidden"
)

// Display defaults applied to folders created or imported without them.
const (
	DefaultTitle       = "New Folder"
	DefaultColor       = "#000000"
	DefaultFontColor   = "#FFFFFF"
	DefaultFolderTitle = "Default"
	HiddenFolderTitle  = "hidden-macros"
)

// FolderState tracks a folder's persistence lifecycle.
type FolderState int

const (
	StateUnsaved FolderState = iota
	StatePersisted
	StateRemoved
)

func (s FolderState) String() string {
	switch s {
	case StateUnsaved:
		return "unsaved"
	case StatePersisted:
		return "persisted"
	case StateRemoved:
		return "removed"
	}
	return "unknown"
}

// FolderRecord is one value of the persisted flat folder map.
type FolderRecord struct {
	ID            string   `json:"_id,omitempty"`
	TitleText     string   `json:"titleText"`
	ColorText     string   `json:"colorText"`
	FontColorText string   `json:"fontColorText"`
	FolderIcon    *string  `json:"folderIcon"`
	PathToFolder  []string `json:"pathToFolder"`
	MacroList     []string `json:"macroList"`
	PlayerDefault *string  `json:"playerDefault"`
}

// FolderMap is the flat persisted structure keyed by folder id.
type FolderMap map[string]FolderRecord

// Clone returns a deep copy of m.
func (m FolderMap) Clone() FolderMap {
	out := make(FolderMap, len(m))
	for id, r := range m {
		out[id] = r.Clone()
	}
	return out
}

// Clone returns a deep copy of r.
func (r FolderRecord) Clone() FolderRecord {
	r.PathToFolder = slices.Clone(r.PathToFolder)
	r.MacroList = slices.Clone(r.MacroList)
	if r.FolderIcon != nil {
		icon := *r.FolderIcon
		r.FolderIcon = &icon
	}
	if r.PlayerDefault != nil {
		owner := *r.PlayerDefault
		r.PlayerDefault = &owner
	}
	return r
}

// Folder is an in-memory node of the folder forest.
//
// Children is a derived index of folders whose path ends with ID; it is never
// persisted. Expanded is client UI state, persisted separately.
type Folder struct {
	ID            string
	Title         string
	Color         string
	FontColor     string
	Icon          string
	Path          []string
	Content       []string
	Children      []string
	PlayerDefault string
	Expanded      bool
	State         FolderState
}

// ParentID returns the direct parent id, or "" for a root folder.
func (f *Folder) ParentID() string {
	if len(f.Path) == 0 {
		return ""
	}
	return f.Path[len(f.Path)-1]
}

// IsSentinel reports whether f is one of the reserved folders.
func (f *Folder) IsSentinel() bool {
	return IsSentinelID(f.ID)
}

// Contains reports whether entryID is in the folder's content.
func (f *Folder) Contains(entryID string) bool {
	return slices.Contains(f.Content, entryID)
}

// Clone returns a deep copy of f, safe to hand out of the engine.
func (f *Folder) Clone() Folder {
	c := *f
	c.Path = slices.Clone(f.Path)
	c.Content = slices.Clone(f.Content)
	c.Children = slices.Clone(f.Children)
	return c
}

// Record returns the persisted form of f. Derived and transient fields are dropped.
func (f *Folder) Record() FolderRecord {
	r := FolderRecord{
		ID:            f.ID,
		TitleText:     f.Title,
		ColorText:     f.Color,
		FontColorText: f.FontColor,
		PathToFolder:  nonNil(slices.Clone(f.Path)),
		MacroList:     nonNil(slices.Clone(f.Content)),
	}
	if f.Icon != "" {
		icon := f.Icon
		r.FolderIcon = &icon
	}
	if f.PlayerDefault != "" {
		owner := f.PlayerDefault
		r.PlayerDefault = &owner
	}
	return r
}

// FolderFromRecord builds a folder from its persisted form, filling display defaults.
func FolderFromRecord(id string, r FolderRecord) *Folder {
	f := &Folder{
		ID:        id,
		Title:     r.TitleText,
		Color:     r.ColorText,
		FontColor: r.FontColorText,
		Path:      slices.Clone(r.PathToFolder),
		Content:   slices.Clone(r.MacroList),
		State:     StatePersisted,
	}
	if f.Title == "" {
		f.Title = DefaultTitle
	}
	if f.Color == "" {
		f.Color = DefaultColor
	}
	if f.FontColor == "" {
		f.FontColor = DefaultFontColor
	}
	if r.FolderIcon != nil {
		f.Icon = *r.FolderIcon
	}
	if r.PlayerDefault != nil {
		f.PlayerDefault = *r.PlayerDefault
	}
	return f
}

// IsSentinelID reports whether id is reserved.
func IsSentinelID(id string) bool {
	return id == DefaultFolderID || id == HiddenFolderID
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

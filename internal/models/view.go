package models

// TreeNode is a read-only, render-ready view of one folder and its subtree.
type TreeNode struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Color         string      `json:"color"`
	FontColor     string      `json:"font_color"`
	Icon          string      `json:"icon,omitempty"`
	Path          []string    `json:"path"`
	PlayerDefault string      `json:"player_default,omitempty"`
	Expanded      bool        `json:"expanded"`
	Entries       []Entry     `json:"entries"`
	Children      []*TreeNode `json:"children"`
}

// SearchResult lists the entries whose names matched a query and every folder
// on the way to them.
type SearchResult struct {
	EntryIDs  []string `json:"entry_ids"`
	FolderIDs []string `json:"folder_ids"`
}

// MoveTarget is a folder a given folder may legally be moved into.
// RootTargetID stands for "move to root".
type MoveTarget struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	PathName string `json:"path_name"`
}

// RootTargetID is the pseudo folder id naming the root of the forest.
const RootTargetID = "root"

// ReconcileReport summarises one reconciliation pass.
type ReconcileReport struct {
	Bootstrapped bool     `json:"bootstrapped"`
	Folders      int      `json:"folders"`
	Entries      int      `json:"entries"`
	Pruned       []string `json:"pruned"`
	Unassigned   []string `json:"unassigned"`
}

// GroupedEntries partitions live entries for folder edit forms.
type GroupedEntries struct {
	Assigned   []EntryDescriptor `json:"assigned"`
	Unassigned []EntryDescriptor `json:"unassigned"`
}

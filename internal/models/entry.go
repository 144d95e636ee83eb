package models

import (
	"strconv"
	"strings"
)

// PermissionLevel mirrors the host's document permission levels.
type PermissionLevel int

const (
	PermissionNone PermissionLevel = iota
	PermissionLimited
	PermissionObserver
	PermissionOwner
)

var permissionNames = [...]string{"none", "limited", "observer", "owner"}

func (p PermissionLevel) String() string {
	if p.Valid() {
		return permissionNames[p]
	}
	return "unknown"
}

// Valid reports whether p is one of the defined levels.
func (p PermissionLevel) Valid() bool {
	return p >= PermissionNone && p <= PermissionOwner
}

// ParsePermission accepts a level name (case-insensitive) or its number.
func ParsePermission(s string) (PermissionLevel, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range permissionNames {
		if s == name {
			return PermissionLevel(i), true
		}
	}
	if n, err := strconv.Atoi(s); err == nil && PermissionLevel(n).Valid() {
		return PermissionLevel(n), true
	}
	return PermissionNone, false
}

// EntryDescriptor is what the host reports about one live entry.
type EntryDescriptor struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Author     string          `json:"author,omitempty"`
	Permission PermissionLevel `json:"permission"`
}

// Entry is the registry's view of a host entry plus its owning folder.
// Name, Author and Permission are read through from the host document.
type Entry struct {
	ID         string          `json:"id"`
	FolderID   string          `json:"folder_id,omitempty"`
	Name       string          `json:"name"`
	Author     string          `json:"author,omitempty"`
	Permission PermissionLevel `json:"permission"`
}

// User is a host user, used for player-default and user folders.
type User struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color" yaml:"color"`
}

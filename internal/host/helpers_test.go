package host

import "github.com/starford/mfolders/internal/models"

func modelsEntry(id, name string) models.EntryDescriptor {
	return models.EntryDescriptor{ID: id, Name: name}
}

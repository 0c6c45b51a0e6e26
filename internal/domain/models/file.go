package models

import (
	"path"
	"time"
)

type File struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	MimeType   string    `json:"mime_type" db:"mime_type"`
	Size       int64     `json:"size" db:"size"`
	StorageKey string    `json:"-" db:"storage_key"`
	OwnerID    string    `json:"owner_id" db:"owner_id"`
	FolderID   *string   `json:"folder_id" db:"folder_id"` // NULL = unfiled
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// Extension returns the file name extension including the dot, or "".
func (f *File) Extension() string {
	return path.Ext(f.Name)
}

package models

import "time"

// SharedFolder is an explicit grant of READ or EDIT on one folder to one user.
type SharedFolder struct {
	ID         string     `json:"id" db:"id"`
	FolderID   string     `json:"folder_id" db:"folder_id"`
	UserID     string     `json:"user_id" db:"user_id"`
	Permission Permission `json:"permission" db:"permission"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`

	// Joined rows, populated by listing queries only
	User   *User   `json:"user,omitempty"`
	Folder *Folder `json:"folder,omitempty"`
}

// PublicFolderShare is an anonymous read-only link to a folder subtree.
type PublicFolderShare struct {
	ID        string     `json:"id" db:"id"`
	FolderID  string     `json:"folder_id" db:"folder_id"`
	Token     string     `json:"token" db:"token"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Expired reports whether the link is past its expiry at now.
// Links without an expiry never expire.
func (s *PublicFolderShare) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// OrphanedBlob records a blob whose metadata row is gone but whose bytes
// could not be deleted.
type OrphanedBlob struct {
	StorageKey string    `json:"storage_key" db:"storage_key"`
	Reason     string    `json:"reason" db:"reason"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

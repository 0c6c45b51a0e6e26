package config

const (
	// MaxFolderNameLength is the maximum length for folder names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxFolderNameLength = 255

	// MaxFileNameLength is the maximum length for file names.
	// Same as folder names for consistency.
	MaxFileNameLength = 255

	// MaxMimeTypeLength matches files.mime_type VARCHAR(100).
	MaxMimeTypeLength = 100

	// MaxFolderDepth bounds every ancestry walk. Deeper chains are treated
	// as corrupt (a cycle) and resolution stops there.
	MaxFolderDepth = 256

	// PublicTokenBytes is the entropy of a public link token (hex encoded,
	// so tokens are twice as long).
	PublicTokenBytes = 20

	// DefaultMaxUploadBytes caps a single upload at 100MB.
	DefaultMaxUploadBytes = 100 << 20
)

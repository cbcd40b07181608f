package domain

import "time"

// CachedUpload maps a figure image to a file previously uploaded to a
// remote vision service.
type CachedUpload struct {
	ImageID    string
	FileID     string
	ImagePath  string
	UploadedAt time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the entry is no longer usable at now.
func (u CachedUpload) Expired(now time.Time) bool {
	return !now.Before(u.ExpiresAt)
}

// PreparedImage is the result of making a figure available remotely.
type PreparedImage struct {
	ImageID string
	FileID  string

	// Cached is true when an unexpired upload was reused.
	Cached bool
}

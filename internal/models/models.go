package models

import "time"

// Session groups the bearer credentials held for the signed-in user.
type Session struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Valid reports whether the session carries a usable token pair. A missing
// refresh token means silent re-authentication is impossible, so the session
// counts as logged out.
func (s Session) Valid() bool {
	return s.AccessToken != "" && s.RefreshToken != ""
}

// UserProfile describes the identity of the signed-in user as reported by the
// backend.
type UserProfile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// VideoRecord is one entry of the user's video catalog. The collection is
// server-ordered and replaced wholesale on every refresh.
type VideoRecord struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	ShareURL  string     `json:"shareUrl,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// UploadRequest references a locally selected file for the duration of one
// upload. It is never persisted.
type UploadRequest struct {
	URI          string
	Name         string
	DeclaredSize int64
	MIMEType     string
}

package models

import "time"

// Session is the authenticated identity carried through a request
type Session struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Valid reports whether the session is populated and unexpired
func (s *Session) Valid(now time.Time) bool {
	return s != nil && s.UserID != "" && s.AccessToken != "" && now.Before(s.ExpiresAt)
}

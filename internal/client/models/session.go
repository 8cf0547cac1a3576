package models

// Session is everything the client holds for a logged-in user.
// A zero Session means "logged out".
type Session struct {
	AccessToken  string
	RefreshToken string
	Principal    *Principal
}

func (s Session) Empty() bool {
	return s.AccessToken == "" && s.RefreshToken == ""
}

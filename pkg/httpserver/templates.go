package httpserver

// PasswordChangePageData holds the data needed to render the password change form.
type PasswordChangePageData struct {
	SiteName string
	Username string
}

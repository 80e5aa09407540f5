package email

import (
	"fmt"
	"html"
)

// PasswordResetData fills in the password reset email.
type PasswordResetData struct {
	SiteName  string
	Username  string
	ResetURL  string
	ExpiresIn string // e.g. "30 minutes"
}

// NewPasswordResetMessage builds the email that carries a reset link.
func NewPasswordResetMessage(to, subject string, d PasswordResetData) Message {
	return Message{
		To:       to,
		FromName: d.SiteName,
		Subject:  subject,
		HTML:     buildPasswordResetHTML(d),
		Text:     buildPasswordResetText(d),
	}
}

func buildPasswordResetHTML(d PasswordResetData) string {
	link := html.EscapeString(d.ResetURL)
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2>Hi, %s</h2>
    <p>You requested a password reset for your %s account.<br>
    Please follow the link below to set your new password.</p>
    <p style="margin: 30px 0;">
        <a href="%s" style="background-color: teal; color: #fff; padding: 0.5rem 1rem; border-radius: 8px; text-decoration: none;">Reset My Password</a>
    </p>
    <p>Or copy and paste this link into your browser:</p>
    <p style="word-break: break-all; color: #666;">%s</p>
    <p>This link will expire in %s.</p>
    <hr style="border: none; border-top: 1px solid #eee; margin: 30px 0;">
    <p style="color: #666; font-size: 14px;">If you didn't request this, you can safely ignore this email.</p>
</body>
</html>`,
		html.EscapeString(d.Username),
		html.EscapeString(d.SiteName),
		link,
		link,
		html.EscapeString(d.ExpiresIn),
	)
}

func buildPasswordResetText(d PasswordResetData) string {
	return fmt.Sprintf(`Hi, %s

You requested a password reset for your %s account.
Please follow the link below to set your new password:

%s

This link will expire in %s.

If you didn't request this, you can safely ignore this email.
`, d.Username, d.SiteName, d.ResetURL, d.ExpiresIn)
}

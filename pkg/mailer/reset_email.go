package mailer

import "fmt"

const resetSubject = "Password Reset"

// ResetEmail builds the password-reset job for a user. The link is the
// only actionable content; recipients who did not ask for a reset can
// ignore the message and nothing changes.
func ResetEmail(to, baseURL, token string) EmailJob {
	link := fmt.Sprintf("%s/reset_password/%s", baseURL, token)
	body := fmt.Sprintf(`To reset your password, visit the following link:
%s

If you did not make this request then simply ignore this email and no changes will be made.`, link)
	return EmailJob{To: to, Subject: resetSubject, Text: body}
}

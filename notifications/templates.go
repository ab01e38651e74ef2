package notifications

import "strings"

// catalog holds the registered message templates per notification kind.
// Several phrasings exist for the same semantic event so repeated
// notifications don't read robotically; the engine picks one at random.
// Placeholders use `{name}` syntax and are substituted by Render.
var catalog = map[string][]string{
	"LOGIN": {
		"{fullName} ({userId}) logged into the library.",
		"{fullName} ({userId}) just entered the library.",
		"Library entry: {fullName} ({userId}) signed in.",
	},
	"LOGOUT": {
		"{fullName} ({userId}) logged out from the library.",
		"{fullName} ({userId}) just left the library.",
		"Library exit: {fullName} ({userId}) signed out.",
	},
	"FORGOTTEN_LOGOUT": {
		"Hi {fullName}! You forgot to logout from the library. Please logout before leaving. The library closes at 5 PM.",
		"Hi {fullName}, it looks like you're still signed into the library. Please remember to logout before leaving.",
		"Friendly reminder, {fullName}: your library session is still open. Kindly logout when you leave. The library closes at 5 PM.",
		"Hello {fullName}! We noticed you didn't logout from the library today. Please logout so we can keep attendance accurate.",
		"Oops, {fullName}, your library login from earlier is still active. Please logout before you head out.",
		"Hi {fullName}! Your library session is still open. Please logout, or email {contactEmail} if you already left.",
	},
	"FORGOTTEN_LOGOUT_STAFF": {
		"{fullName} ({userId}) forgot to logout from the library.",
		"Open session detected: {fullName} ({userId}) never logged out.",
		"{fullName} ({userId}) has been inside the library past closing without logging out.",
	},
	"ADMIN_RESPONSE": {
		"Your password reset request has been granted by {adminId}. You can now reset your password.",
		"Good news! Admin {adminId} approved your password reset request. Please proceed to reset your password.",
		"Password reset approved by {adminId} at {timestamp}. You may now create a new password.",
	},
	"ADMIN_RESPONSE_DECLINED": {
		"Your password reset request was declined by {adminId}. Please contact support if you need assistance.",
		"Admin {adminId} declined your password reset request at {timestamp}. For help, please reach out to the library staff.",
		"Password reset request declined by {adminId}. If you believe this is an error, please contact administration.",
	},
}

// titles maps a notification kind to its display title.
var titles = map[string]string{
	"LOGIN":            "Library Activity",
	"LOGOUT":           "Library Activity",
	"FORGOTTEN_LOGOUT": "Logout Reminder",
	"ADMIN_RESPONSE":   "Password Reset",
}

// Render substitutes `{name}` placeholders in a template by variable name.
// Placeholders with no matching variable are left as-is: a template typo must
// never error the notification path.
func Render(template string, variables map[string]string) string {
	if len(variables) == 0 {
		return template
	}
	oldnew := make([]string, 0, len(variables)*2)
	for name, value := range variables {
		oldnew = append(oldnew, "{"+name+"}", value)
	}
	return strings.NewReplacer(oldnew...).Replace(template)
}

// templatesFor returns the registered templates for an event key, falling
// back to a single pass-through template when none are registered.
func templatesFor(key string) []string {
	if templates, ok := catalog[key]; ok && len(templates) > 0 {
		return templates
	}
	return nil
}

// titleFor returns the display title for an event key.
func titleFor(key string) string {
	if title, ok := titles[key]; ok {
		return title
	}
	return "Notification"
}

package core

// Logger is implemented by every logging service.
// args may hold errors, maps of extras and the current Identity.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Identity is the authenticated user as told by the identity provider.
type Identity struct {
	ID       string
	FullName string
	Username string
	Email    string
	Roles    []string
}

func (id Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

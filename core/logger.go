package core

// Logger is any service that can log messages.
// args may hold errors, maps of extra data and one Actor.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Actor identifies the logged in user a log entry is about.
type Actor struct {
	ID      string
	Account string
	Role    string
}

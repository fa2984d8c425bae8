package core

// Logger is implemented by any structured logging backend.
// args may hold errors, map[string]interface{} extras and the user.User the entry relates to.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

package core

// Logger is the application wide logger.
// expected args: error, map[string]interface{} or a Person (the user the log entry relates to).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Person identifies the user an error report relates to.
type Person struct {
	ID       string
	Username string
	Email    string
}

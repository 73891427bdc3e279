package onecontext

// ConfigurationError is returned when the client cannot be constructed from
// the provided options and environment, before any network call is made.
type ConfigurationError struct {
	msg string
}

func (e *ConfigurationError) Error() string {
	return e.msg
}

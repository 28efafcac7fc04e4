package resolver

import "fmt"

// MissingEnvironmentValueError reports a $ENV{NAME} placeholder whose
// variable is absent from the environment and which carries no fallback.
type MissingEnvironmentValueError struct {
	Name string
	Path string
}

func (e *MissingEnvironmentValueError) Error() string {
	return fmt.Sprintf("missing environment variable %q referenced at %s", e.Name, e.Path)
}

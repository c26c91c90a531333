package cli

import (
	"fmt"
	"strings"
)

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

type ambiguousRefError struct {
	ref     string
	matches []string
}

func (e ambiguousRefError) Error() string {
	return fmt.Sprintf("ambiguous task ref %q matches %d tasks: %s", e.ref, len(e.matches), strings.Join(e.matches, ", "))
}

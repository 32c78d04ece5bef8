package graph

import "errors"

// Errors returned by graph operations. Callers test them with errors.Is.
var (
	// ErrNotFound is returned for an unknown node, pin or link id.
	ErrNotFound = errors.New("graph: not found")

	// ErrTemplateNotFound is returned by CreateNode for an unknown template name.
	ErrTemplateNotFound = errors.New("graph: template not found")

	// ErrInvalidLink is returned by CreateLink when CanCreateLink is false.
	ErrInvalidLink = errors.New("graph: invalid link")

	// ErrDuplicateTemplate is returned when registering a template name twice.
	ErrDuplicateTemplate = errors.New("graph: duplicate template")

	// ErrInvalidTemplate is returned when registering a malformed template.
	ErrInvalidTemplate = errors.New("graph: invalid template")

	// ErrInconsistent is wrapped by every problem reported by Check.
	ErrInconsistent = errors.New("graph: inconsistent")
)

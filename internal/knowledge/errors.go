package knowledge

import "errors"

// ErrContactNotFound is returned when no stored contact matches a lookup.
var ErrContactNotFound = errors.New("knowledge: contact not found")

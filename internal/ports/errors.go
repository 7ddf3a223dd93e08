package ports

import "errors"

// ErrNotFound: job, réglage ou ressource absent du stockage local.
var ErrNotFound = errors.New("not found")

// ErrConflict: l'opération a été dépassée par une autre (état changé, ouverture plus récente).
var ErrConflict = errors.New("conflict")

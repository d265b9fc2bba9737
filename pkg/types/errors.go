package types

import "errors"

// ErrValidation indicates a record failed field validation and was rejected
// before reaching storage.
var ErrValidation = errors.New("validation failed")

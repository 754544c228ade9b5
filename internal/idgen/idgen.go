package idgen

import "github.com/google/uuid"

// NewFunc produces a new globally unique identifier. Tests replace it with a
// deterministic sequence.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new identifier via NewFunc.
func New() string { return NewFunc() }

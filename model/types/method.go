package types

import (
	"context"
	"reflect"
)

type Signatures []Signature

// Lookup returns the signature with the given name or nil.
func (s Signatures) Lookup(name string) *Signature {
	for i := range s {
		sig := &s[i]
		if sig.Name == name {
			return sig
		}
	}
	return nil
}

// Signature describes a step method and its input/output shapes.
type Signature struct {
	Name        string
	Description string
	Input       reflect.Type
	Output      reflect.Type
}

// Executable is an invocable step method. Input and output are pointers to
// instances of the signature's declared types.
type Executable func(ctx context.Context, input, output interface{}) error

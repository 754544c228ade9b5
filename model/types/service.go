package types

// Service is a named collection of step methods that the executor can invoke.
type Service interface {
	Name() string
	Methods() Signatures
	Method(name string) (Executable, error)
}

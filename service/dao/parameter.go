package dao

// Parameter is a single List filter criterion, matched against the field of
// the stored record that shares its name. Value may be a scalar or a slice;
// a slice matches when any element matches.
type Parameter struct {
	Name  string
	Value interface{}
}

// NewParameter builds a filter criterion. A single value filters on equality,
// multiple values act as a set membership test.
func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}

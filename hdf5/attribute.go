package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/go-stanload/internal/dtype"
	"github.com/robert-malhotra/go-stanload/internal/message"
)

// Attribute represents an HDF5 attribute attached to a dataset or group.
type Attribute struct {
	msg *message.Attribute
}

// Name returns the attribute name.
func (a *Attribute) Name() string {
	return a.msg.Name
}

// Shape returns the dimensions of the attribute value, or nil for a scalar.
func (a *Attribute) Shape() []uint64 {
	if a.IsScalar() {
		return nil
	}
	return a.msg.Dataspace.Dims
}

// NumElements returns the total number of elements.
func (a *Attribute) NumElements() uint64 {
	if a.msg.Dataspace == nil {
		return 1
	}
	return a.msg.Dataspace.NumElements()
}

// IsScalar returns true if the attribute is a scalar value.
func (a *Attribute) IsScalar() bool {
	return a.msg.Dataspace == nil || a.msg.Dataspace.IsScalar()
}

// Read reads the attribute value into dest, a pointer to a slice.
func (a *Attribute) Read(dest interface{}) error {
	if a.msg.Datatype == nil {
		return fmt.Errorf("attribute %q has no datatype", a.msg.Name)
	}
	return dtype.Convert(a.msg.Datatype, a.msg.Data, a.NumElements(), dest)
}

// Value reads the attribute in its natural Go type. Scalars are returned
// bare: int64, uint64, float64 or string. Arrays come back as slices.
func (a *Attribute) Value() (interface{}, error) {
	dt := a.msg.Datatype
	if dt == nil {
		return nil, fmt.Errorf("attribute %q has no datatype", a.msg.Name)
	}

	var (
		out interface{}
		err error
	)
	switch {
	case dt.Class == message.ClassString:
		var v []string
		err = a.Read(&v)
		out = v
	case dt.IsFloat():
		var v []float64
		err = a.Read(&v)
		out = v
	case dt.IsInteger() && dt.Signed:
		var v []int64
		err = a.Read(&v)
		out = v
	case dt.IsInteger():
		var v []uint64
		err = a.Read(&v)
		out = v
	default:
		return nil, fmt.Errorf("attribute %q: unsupported datatype class %d", a.msg.Name, dt.Class)
	}
	if err != nil || !a.IsScalar() {
		return out, err
	}

	switch v := out.(type) {
	case []string:
		return v[0], nil
	case []float64:
		return v[0], nil
	case []int64:
		return v[0], nil
	case []uint64:
		return v[0], nil
	}
	return out, nil
}

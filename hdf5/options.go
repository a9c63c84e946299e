package hdf5

import "github.com/robert-malhotra/go-stanload/internal/message"

// DatasetOption adjusts a dataset created by CreateDataset or
// CreateDatasetWithType.
type DatasetOption func(*datasetConfig)

type datasetConfig struct {
	attrs []*message.Attribute
	err   error
}

// WithAttribute attaches an attribute to the new dataset. value may be a
// string, a numeric scalar, or a slice of either.
func WithAttribute(name string, value interface{}) DatasetOption {
	return func(c *datasetConfig) {
		if c.err != nil {
			return
		}
		a, err := newAttribute(name, value)
		if err != nil {
			c.err = err
			return
		}
		c.attrs = append(c.attrs, a)
	}
}

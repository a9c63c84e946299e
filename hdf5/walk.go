package hdf5

import (
	"errors"
	"path"
)

// WalkFunc receives each object visited by Walk. obj is a *Group or a
// *Dataset, or nil with err set when a member cannot be opened.
type WalkFunc func(path string, obj interface{}, err error) error

// ErrSkipGroup returned for a group prunes its members from the walk.
var ErrSkipGroup = errors.New("skip this group")

// Walk visits g and everything below it depth-first, members in the order
// Members lists them. Any other error from fn stops the walk.
func Walk(g *Group, fn WalkFunc) error {
	switch err := fn(g.Path(), g, nil); {
	case errors.Is(err, ErrSkipGroup):
		return nil
	case err != nil:
		return err
	}
	names, err := g.Members()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := walkMember(g, name, fn); err != nil {
			return err
		}
	}
	return nil
}

func walkMember(g *Group, name string, fn WalkFunc) error {
	if sub, err := g.OpenGroup(name); err == nil {
		return Walk(sub, fn)
	}
	p := path.Join(g.Path(), name)
	ds, err := g.OpenDataset(name)
	if err != nil {
		return fn(p, nil, err)
	}
	return fn(p, ds, nil)
}

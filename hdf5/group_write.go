package hdf5

import (
	"fmt"
	"path"
	"reflect"
	"strings"

	"github.com/robert-malhotra/go-stanload/internal/dtype"
	"github.com/robert-malhotra/go-stanload/internal/message"
	"github.com/robert-malhotra/go-stanload/internal/object"
)

// CreateGroup creates a new subgroup with the given name.
func (g *Group) CreateGroup(name string) (*Group, error) {
	if !g.file.writable {
		return nil, ErrReadOnly
	}
	if err := checkName(name); err != nil {
		return nil, fmt.Errorf("group: %w", err)
	}
	if err := g.checkFree(name); err != nil {
		return nil, err
	}

	addr, err := g.file.writeHeader(object.GroupMessages(nil, nil), object.GroupChunk)
	if err != nil {
		return nil, fmt.Errorf("writing group header: %w", err)
	}

	child := &Group{
		file:         g.file,
		path:         path.Join(g.path, name),
		addr:         addr,
		parent:       g,
		pendingLinks: []*message.Link{},
		pendingAttrs: []*message.Attribute{},
	}
	if err := g.addLink(message.NewHardLink(name, addr)); err != nil {
		return nil, fmt.Errorf("adding link to parent: %w", err)
	}
	return child, nil
}

// checkName rejects names that would not resolve back to the new link.
func checkName(name string) error {
	if name == "" || name == "." || strings.Contains(name, "/") {
		return fmt.Errorf("%w %q", ErrBadName, name)
	}
	return nil
}

// SetAttr attaches an attribute to the group, replacing any attribute of the
// same name. The value can be a string, a numeric scalar, or a slice of either.
func (g *Group) SetAttr(name string, value interface{}) error {
	if !g.file.writable {
		return ErrReadOnly
	}
	attr, err := newAttribute(name, value)
	if err != nil {
		return err
	}
	g.load()

	for i, a := range g.pendingAttrs {
		if a.Name == name {
			g.pendingAttrs[i] = attr
			return g.rewriteHeader()
		}
	}
	g.pendingAttrs = append(g.pendingAttrs, attr)
	return g.rewriteHeader()
}

func (g *Group) checkFree(name string) error {
	g.load()
	for _, link := range g.pendingLinks {
		if link.Name == name {
			return fmt.Errorf("%q already exists in %s", name, g.path)
		}
	}
	return nil
}

// load initializes the pending lists from the on-disk header, if any.
func (g *Group) load() {
	if g.pendingLinks == nil {
		g.pendingLinks = append([]*message.Link{}, g.links()...)
	}
	if g.pendingAttrs == nil {
		g.pendingAttrs = append([]*message.Attribute{}, g.attributes()...)
	}
}

func (g *Group) addLink(link *message.Link) error {
	if !g.file.writable {
		return ErrReadOnly
	}
	g.load()
	g.pendingLinks = append(g.pendingLinks, link)
	return g.rewriteHeader()
}

// rewriteHeader writes the group's header at a fresh address and repoints
// the parent link (or the superblock, for the root) at it.
func (g *Group) rewriteHeader() error {
	newAddr, err := g.file.writeHeader(object.GroupMessages(g.pendingLinks, g.pendingAttrs), object.GroupChunk)
	if err != nil {
		return fmt.Errorf("writing group header: %w", err)
	}
	g.addr = newAddr
	g.header = nil

	if g.parent == nil {
		g.file.superblock.RootGroupAddress = newAddr
		return nil
	}

	name := path.Base(g.path)
	g.parent.load()
	for _, link := range g.parent.pendingLinks {
		if link.Name == name {
			link.Address = newAddr
			return g.parent.rewriteHeader()
		}
	}
	return fmt.Errorf("%s: %w in parent", g.path, ErrNotFound)
}

// newAttribute builds an attribute message from a Go value.
func newAttribute(name string, value interface{}) (*message.Attribute, error) {
	if name == "" {
		return nil, fmt.Errorf("attribute name cannot be empty")
	}

	var (
		dt   *message.Datatype
		ds   *message.Dataspace
		data interface{} = value
	)

	switch v := value.(type) {
	case string:
		dt = message.NewStringDatatype(uint32(len(v)+1), message.PadNullTerm, message.CharsetUTF8)
		ds = message.NewScalarDataspace()
	case []string:
		width := 1
		for _, s := range v {
			width = max(width, len(s)+1)
		}
		dt = message.NewStringDatatype(uint32(width), message.PadNullTerm, message.CharsetUTF8)
		ds = message.NewDataspace([]uint64{uint64(len(v))}, nil)
	default:
		rv := reflect.ValueOf(value)
		if !rv.IsValid() {
			return nil, fmt.Errorf("attribute %q: nil value", name)
		}
		var err error
		dt, err = dtype.ForGoType(rv.Type())
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			ds = message.NewDataspace([]uint64{uint64(rv.Len())}, nil)
		} else {
			ds = message.NewScalarDataspace()
		}
	}

	raw, err := dtype.Encode(dt, data)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w", name, err)
	}
	return message.NewAttribute(name, dt, ds, raw), nil
}

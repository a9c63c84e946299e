package hdf5

import (
	"fmt"
	"path"
	"strings"

	"github.com/robert-malhotra/go-stanload/internal/btree"
	"github.com/robert-malhotra/go-stanload/internal/heap"
	"github.com/robert-malhotra/go-stanload/internal/message"
	"github.com/robert-malhotra/go-stanload/internal/object"
)

// Group is a container of datasets and other groups.
type Group struct {
	file   *File
	path   string
	header *object.Header
	addr   uint64
	parent *Group

	// Write support; nil for groups read from disk.
	pendingLinks []*message.Link
	pendingAttrs []*message.Attribute
}

// Name returns the group name (last component of path).
func (g *Group) Name() string {
	if g.path == "/" {
		return "/"
	}
	return path.Base(g.path)
}

// Path returns the full path to this group.
func (g *Group) Path() string {
	return g.path
}

// OpenGroup opens a group by path relative to g. An empty path is g.
func (g *Group) OpenGroup(rel string) (*Group, error) {
	if len(splitPath(rel)) == 0 {
		return g, nil
	}
	t, err := g.resolve(rel, map[string]bool{})
	if err != nil {
		return nil, err
	}
	if t.isDataset() {
		return nil, fmt.Errorf("%s: %w", t.path, ErrNotGroup)
	}
	return g.file.group(t)
}

// OpenDataset opens a dataset by path relative to g.
func (g *Group) OpenDataset(rel string) (*Dataset, error) {
	t, err := g.resolve(rel, map[string]bool{})
	if err != nil {
		return nil, err
	}
	if !t.isDataset() {
		return nil, fmt.Errorf("%s: %w", t.path, ErrNotDataset)
	}
	return g.file.dataset(t)
}

// resolve walks rel component by component. visited holds the soft link
// targets followed so far.
func (g *Group) resolve(rel string, visited map[string]bool) (target, error) {
	parts := splitPath(rel)
	if len(parts) == 0 {
		return target{addr: g.addr, path: g.path, header: g.header, parent: g.parent}, nil
	}
	dir := g
	for _, name := range parts[:len(parts)-1] {
		t, err := dir.child(name, visited)
		if err != nil {
			return target{}, err
		}
		if t.isDataset() {
			return target{}, fmt.Errorf("%s: %w", t.path, ErrNotGroup)
		}
		if dir, err = g.file.group(t); err != nil {
			return target{}, err
		}
	}
	return dir.child(parts[len(parts)-1], visited)
}

// child resolves one member name, following soft links.
func (g *Group) child(name string, visited map[string]bool) (target, error) {
	links, err := g.members()
	if err != nil {
		return target{}, err
	}
	childPath := path.Join(g.path, name)
	for _, link := range links {
		if link.Name != name {
			continue
		}
		switch link.Kind {
		case message.LinkHard:
			t := target{addr: link.Address, path: childPath, parent: g}
			err := g.file.load(&t)
			return t, err
		case message.LinkSoft:
			if len(visited) >= MaxLinkDepth {
				return target{}, fmt.Errorf("%s: %w", childPath, ErrLinkDepth)
			}
			if visited[link.Target] {
				return target{}, fmt.Errorf("%s: circular soft link to %s", childPath, link.Target)
			}
			visited[link.Target] = true
			from := g
			if strings.HasPrefix(link.Target, "/") {
				from = g.file.root
			}
			return from.resolve(link.Target, visited)
		default:
			return target{}, fmt.Errorf("%s: unsupported link kind %d", childPath, link.Kind)
		}
	}
	return target{}, fmt.Errorf("%s: %w", childPath, ErrNotFound)
}

// links returns the link messages of the group, pending or on disk.
func (g *Group) links() []*message.Link {
	if g.pendingLinks != nil || g.header == nil {
		return g.pendingLinks
	}
	var links []*message.Link
	for _, msg := range g.header.All(message.TypeLink) {
		links = append(links, msg.(*message.Link))
	}
	return links
}

// dense reports whether the group keeps its links in a fractal heap.
func (g *Group) dense() bool {
	if g.header == nil {
		return false
	}
	info, ok := g.header.First(message.TypeLinkInfo).(*message.LinkInfo)
	return ok && info.FractalHeapAddress != 0
}

// symbolTable returns the symbol table of an old-style group, or nil.
func (g *Group) symbolTable() *message.SymbolTable {
	if g.header == nil {
		return nil
	}
	if msg := g.header.First(message.TypeSymbolTable); msg != nil {
		return msg.(*message.SymbolTable)
	}
	if g.path == "/" && g.file.superblock.RootGroupBTreeAddress != 0 {
		return &message.SymbolTable{
			BTreeAddress:     g.file.superblock.RootGroupBTreeAddress,
			LocalHeapAddress: g.file.superblock.RootGroupLocalHeapAddress,
		}
	}
	return nil
}

// members returns the group's links, reading the symbol table of an
// old-style group when there are no link messages.
func (g *Group) members() ([]*message.Link, error) {
	if links := g.links(); len(links) > 0 {
		return links, nil
	}
	if g.dense() {
		return nil, fmt.Errorf("group %s: %w", g.path, ErrDenseLinks)
	}
	st := g.symbolTable()
	if st == nil {
		return nil, nil
	}
	names, err := heap.ReadLocal(g.file.reader, st.LocalHeapAddress)
	if err != nil {
		return nil, fmt.Errorf("group %s: %w", g.path, err)
	}
	return btree.GroupLinks(g.file.reader, st.BTreeAddress, names)
}

// Members returns the names of the group's members in storage order.
func (g *Group) Members() ([]string, error) {
	links, err := g.members()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(links))
	for i, link := range links {
		names[i] = link.Name
	}
	return names, nil
}

func (g *Group) attributes() []*message.Attribute {
	if g.pendingAttrs != nil || g.header == nil {
		return g.pendingAttrs
	}
	var attrs []*message.Attribute
	for _, msg := range g.header.All(message.TypeAttribute) {
		attrs = append(attrs, msg.(*message.Attribute))
	}
	return attrs
}

// Attrs returns the attribute names for this group.
func (g *Group) Attrs() []string {
	var names []string
	for _, attr := range g.attributes() {
		names = append(names, attr.Name)
	}
	return names
}

// Attr returns an attribute by name, or nil if not found.
func (g *Group) Attr(name string) *Attribute {
	for _, attr := range g.attributes() {
		if attr.Name == name {
			return &Attribute{msg: attr}
		}
	}
	return nil
}

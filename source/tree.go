package source

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-stanload/param"
)

// NDataKey holds the number of ROOT rows that passed the cut.
const NDataKey = "nData"

type treeExtractor struct {
	log *zap.Logger
}

func (e *treeExtractor) Format() Format { return FormatROOT }

type branchBinding struct {
	field Field
	slot  int
	// leaf is the struct field read from a composite branch, or -1.
	leaf   int
	values []any
}

// Extract reads the named tree. Rows failing the cut are dropped, the
// passing row count is stored under nData, and each field's values are
// appended under its key and demoted when only one value was read.
func (e *treeExtractor) Extract(ctx context.Context, f File, into param.Map) error {
	file, err := groot.Open(f.Name)
	if err != nil {
		return err
	}
	defer file.Close()

	obj, err := file.Get(f.Tree)
	if err != nil {
		return fmt.Errorf("locating tree %q: %w", f.Tree, err)
	}
	tree, ok := obj.(rtree.Tree)
	if !ok {
		return fmt.Errorf("%q is a %s, not a tree", f.Tree, obj.Class())
	}
	e.log.Debug("opened tree",
		zap.String("file", f.Name),
		zap.String("tree", f.Tree),
		zap.Int64("entries", tree.Entries()))

	available := make(map[string]rtree.ReadVar)
	for _, rv := range rtree.NewReadVars(tree) {
		if _, dup := available[rv.Name]; !dup {
			available[rv.Name] = rv
		}
	}

	var (
		selected []rtree.ReadVar
		slots    = map[string]int{}
	)
	use := func(name string) int {
		if i, ok := slots[name]; ok {
			return i
		}
		slots[name] = len(selected)
		selected = append(selected, available[name])
		return len(selected) - 1
	}

	var bindings []*branchBinding
	for _, field := range f.Fields {
		name := field.Name
		if _, ok := available[name]; !ok {
			name += "."
		}
		rv, ok := available[name]
		leaf := -1
		if ok {
			leaf, ok = leafIndex(rv.Value, field.Name)
		}
		if !ok {
			e.log.Debug("branch not found, skipping",
				zap.String("tree", f.Tree),
				zap.String("branch", field.Name))
			continue
		}
		bindings = append(bindings, &branchBinding{field: field, slot: use(name), leaf: leaf})
	}

	var (
		cut     *Cut
		cutArgs []int
	)
	if f.Cut != "" {
		cut, err = CompileCut(f.Cut, func(name string) bool {
			rv, ok := available[name]
			return ok && isScalarNumeric(rv.Value)
		})
		if err != nil {
			return err
		}
		for _, name := range cut.Names() {
			cutArgs = append(cutArgs, use(name))
		}
	}

	rows, err := e.scan(ctx, tree, selected, cut, cutArgs, bindings)
	if err != nil {
		return err
	}
	into[NDataKey] = rows

	for _, b := range bindings {
		key := b.field.Key()
		if dim := b.field.Dim; dim > 1 && rows > 0 && int64(len(b.values)) != rows*int64(dim) {
			e.log.Warn("branch length does not match the field dimension",
				zap.String("branch", b.field.Name),
				zap.Int("values", len(b.values)),
				zap.Int("dim", dim))
		}
		for _, v := range b.values {
			c, err := param.Coerce(b.field.Kind, v)
			if err != nil {
				return fmt.Errorf("branch %s: %w", b.field.Name, err)
			}
			into.Insert(key, c)
		}
		into.Demote(key)
	}

	e.log.Debug("read tree",
		zap.String("tree", f.Tree),
		zap.Int64(NDataKey, rows),
		zap.Int("branches", len(bindings)))
	return nil
}

// scan reads every entry and collects the bound branches of passing rows.
func (e *treeExtractor) scan(
	ctx context.Context,
	tree rtree.Tree,
	selected []rtree.ReadVar,
	cut *Cut,
	cutArgs []int,
	bindings []*branchBinding,
) (int64, error) {
	if len(selected) == 0 {
		if cut != nil && !cut.Pass(nil) {
			return 0, nil
		}
		return tree.Entries(), nil
	}

	r, err := rtree.NewReader(tree, selected)
	if err != nil {
		return 0, fmt.Errorf("creating tree reader: %w", err)
	}
	defer r.Close()

	var (
		rows int64
		args = make([]float64, len(cutArgs))
	)
	err = r.Read(func(rtree.RCtx) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if cut != nil {
			for i, slot := range cutArgs {
				args[i] = scalarFloat(selected[slot].Value)
			}
			if !cut.Pass(args) {
				return nil
			}
		}
		rows++
		for _, b := range bindings {
			b.values = appendLeaf(b.values, selected[b.slot].Value, b.leaf)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("reading tree: %w", err)
	}
	return rows, nil
}

// leafIndex picks the leaf of a composite branch that holds name: the
// struct field tagged with name, or the only field. Non-struct branches
// return -1. ok is false when a struct has no such leaf.
func leafIndex(ptr any, name string) (idx int, ok bool) {
	t := reflect.TypeOf(ptr).Elem()
	if t.Kind() != reflect.Struct {
		return -1, true
	}
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("groot"), "[")
		if tag == name {
			return i, true
		}
	}
	if t.NumField() == 1 {
		return 0, true
	}
	return -1, false
}

// appendLeaf appends the current value behind ptr, or its field leaf when
// leaf >= 0; arrays contribute each element in order.
func appendLeaf(dst []any, ptr any, leaf int) []any {
	v := reflect.ValueOf(ptr).Elem()
	if leaf >= 0 {
		v = v.Field(leaf)
	}
	switch v.Kind() {
	case reflect.Array, reflect.Slice:
		for i := 0; i < v.Len(); i++ {
			dst = append(dst, v.Index(i).Interface())
		}
	default:
		dst = append(dst, v.Interface())
	}
	return dst
}

func isScalarNumeric(ptr any) bool {
	switch reflect.ValueOf(ptr).Elem().Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func scalarFloat(ptr any) float64 {
	v := reflect.ValueOf(ptr).Elem()
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return 1
		}
		return 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	}
	return v.Float()
}

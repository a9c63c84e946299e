package columnar

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"
)

// readRootTree returns the tree title and the values of every branch, one
// entry per row.
func readRootTree(t *testing.T, path, name string) (string, map[string][]any) {
	t.Helper()
	f, err := groot.Open(path)
	require.NoError(t, err)
	defer f.Close()

	obj, err := f.Get(name)
	require.NoError(t, err)
	tree, ok := obj.(rtree.Tree)
	require.True(t, ok, "%s is a %s", name, obj.Class())

	rvars := rtree.NewReadVars(tree)
	r, err := rtree.NewReader(tree, rvars)
	require.NoError(t, err)
	defer r.Close()

	out := make(map[string][]any, len(rvars))
	err = r.Read(func(rtree.RCtx) error {
		for _, rv := range rvars {
			out[rv.Name] = append(out[rv.Name], reflect.ValueOf(rv.Value).Elem().Interface())
		}
		return nil
	})
	require.NoError(t, err)
	return tree.Title(), out
}

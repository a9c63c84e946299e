package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go-hep.org/x/hep/groot"
	"go-hep.org/x/hep/groot/rtree"

	"github.com/robert-malhotra/go-stanload/hdf5"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "List the groups and datasets of an HDF5 file, or the trees of a ROOT file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		if strings.EqualFold(filepath.Ext(args[0]), ".root") {
			return inspectRoot(w, args[0])
		}
		return inspectH5(w, args[0])
	},
}

func inspectH5(w io.Writer, path string) error {
	f, err := hdf5.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(w, "%s: HDF5, superblock v%d\n", path, f.Version())
	return hdf5.Walk(f.Root(), func(p string, obj interface{}, err error) error {
		indent := strings.Repeat("  ", strings.Count(strings.Trim(p, "/"), "/")+1)
		if p == "/" {
			indent = ""
		}
		switch o := obj.(type) {
		case *hdf5.Group:
			fmt.Fprintf(w, "%sgroup %s", indent, p)
			printAttrs(w, o.Attrs(), o.Attr)
			fmt.Fprintln(w)
		case *hdf5.Dataset:
			fmt.Fprintf(w, "%sdataset %s %v", indent, p, o.Shape())
			printAttrs(w, o.Attrs(), o.Attr)
			fmt.Fprintln(w)
		default:
			fmt.Fprintf(w, "%s%s: %v\n", indent, p, err)
		}
		return nil
	})
}

func printAttrs(w io.Writer, names []string, attr func(string) *hdf5.Attribute) {
	for _, name := range names {
		a := attr(name)
		if a == nil {
			continue
		}
		v, err := a.Value()
		if err != nil {
			fmt.Fprintf(w, " %s=?", name)
			continue
		}
		fmt.Fprintf(w, " %s=%v", name, v)
	}
}

func inspectRoot(w io.Writer, path string) error {
	f, err := groot.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(w, "%s: ROOT\n", path)
	for _, key := range f.Keys() {
		fmt.Fprintf(w, "  %s %s", key.ClassName(), key.Name())
		obj, err := f.Get(key.Name())
		if err != nil {
			fmt.Fprintf(w, ": %v\n", err)
			continue
		}
		tree, ok := obj.(rtree.Tree)
		if !ok {
			fmt.Fprintln(w)
			continue
		}
		fmt.Fprintf(w, " %q, %d entries\n", tree.Title(), tree.Entries())
		for _, b := range tree.Branches() {
			for _, leaf := range b.Leaves() {
				fmt.Fprintf(w, "    %s %s", leaf.Name(), leaf.TypeName())
				if n := leaf.Len(); n > 1 {
					fmt.Fprintf(w, "[%d]", n)
				}
				fmt.Fprintln(w)
			}
		}
	}
	return nil
}

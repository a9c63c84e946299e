package hdf5

import (
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/robert-malhotra/go-stanload/internal/message"
	"github.com/robert-malhotra/go-stanload/internal/object"
)

func TestCreateNestedGroups(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "groups.h5")

	f, err := Create(testFile)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	a, err := f.Root().CreateGroup("a")
	if err != nil {
		t.Fatalf("CreateGroup(a) failed: %v", err)
	}
	b, err := a.CreateGroup("b")
	if err != nil {
		t.Fatalf("CreateGroup(b) failed: %v", err)
	}
	if b.Path() != "/a/b" {
		t.Errorf("Expected path /a/b, got %s", b.Path())
	}
	if _, err := b.CreateDataset("v", []float64{1.5}); err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	if _, err := f.Root().CreateGroup("c"); err != nil {
		t.Fatalf("CreateGroup(c) failed: %v", err)
	}
	if _, err := f.Root().CreateGroup("c"); err == nil {
		t.Error("Expected error creating duplicate group")
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f2, err := Open(testFile)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()

	members, err := f2.Root().Members()
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	sort.Strings(members)
	if len(members) != 2 || members[0] != "a" || members[1] != "c" {
		t.Errorf("Expected [a c], got %v", members)
	}

	ds, err := f2.OpenDataset("/a/b/v")
	if err != nil {
		t.Fatalf("OpenDataset failed: %v", err)
	}
	vals, err := ds.ReadFloat64()
	if err != nil {
		t.Fatalf("ReadFloat64 failed: %v", err)
	}
	if len(vals) != 1 || vals[0] != 1.5 {
		t.Errorf("Expected [1.5], got %v", vals)
	}

	if _, err := f2.OpenGroup("/a/b/v"); err == nil {
		t.Error("Expected error opening dataset as group")
	}
}

func TestGroupAttributes(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "gattrs.h5")

	f, err := Create(testFile)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	g, err := f.Root().CreateGroup("tree")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if err := g.SetAttr("title", "first"); err != nil {
		t.Fatalf("SetAttr failed: %v", err)
	}
	if err := g.SetAttr("title", "stan model results"); err != nil {
		t.Fatalf("SetAttr failed: %v", err)
	}
	if err := g.SetAttr("entries", int64(12)); err != nil {
		t.Fatalf("SetAttr failed: %v", err)
	}
	if _, err := g.CreateDataset("x", []int32{1}); err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f2, err := Open(testFile)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()

	g2, err := f2.OpenGroup("/tree")
	if err != nil {
		t.Fatalf("OpenGroup failed: %v", err)
	}
	if n := len(g2.Attrs()); n != 2 {
		t.Errorf("Expected 2 attributes, got %d", n)
	}

	title, err := g2.Attr("title").Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if title != "stan model results" {
		t.Errorf("Expected title, got %v", title)
	}
	entries, err := g2.Attr("entries").Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	if entries != int64(12) {
		t.Errorf("Expected 12, got %v", entries)
	}
	if g2.Attr("missing") != nil {
		t.Error("Expected nil for missing attribute")
	}
}

func TestDenseGroupIsReported(t *testing.T) {
	testFile := filepath.Join(t.TempDir(), "dense.h5")

	f, err := Create(testFile)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	info := &message.LinkInfo{FractalHeapAddress: 0x2000, NameIndexAddress: 0x3000}
	addr, err := f.writeHeader([]message.Message{info, message.NewGroupInfo()}, object.GroupChunk)
	if err != nil {
		t.Fatalf("writeHeader failed: %v", err)
	}
	if err := f.Root().addLink(message.NewHardLink("dense", addr)); err != nil {
		t.Fatalf("addLink failed: %v", err)
	}
	if _, err := f.Root().CreateGroup("empty"); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f2, err := Open(testFile)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer f2.Close()

	g, err := f2.OpenGroup("dense")
	if err != nil {
		t.Fatalf("OpenGroup failed: %v", err)
	}
	if _, err := g.Members(); !errors.Is(err, ErrDenseLinks) {
		t.Errorf("Members: expected ErrDenseLinks, got %v", err)
	}
	_, err = f2.OpenDataset("dense/theta")
	if !errors.Is(err, ErrDenseLinks) {
		t.Errorf("OpenDataset: expected ErrDenseLinks, got %v", err)
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("OpenDataset: dense group reported as missing: %v", err)
	}

	empty, err := f2.OpenGroup("empty")
	if err != nil {
		t.Fatalf("OpenGroup(empty) failed: %v", err)
	}
	if members, err := empty.Members(); err != nil || len(members) != 0 {
		t.Errorf("empty group: got %v, %v", members, err)
	}
}

func TestCreateRejectsBadNames(t *testing.T) {
	f := roundTrip(t, func(root *Group) {
		for _, name := range []string{"", ".", "a/b", "/theta", "x/"} {
			if _, err := root.CreateGroup(name); !errors.Is(err, ErrBadName) {
				t.Errorf("CreateGroup(%q): got %v, want ErrBadName", name, err)
			}
			if _, err := root.CreateDataset(name, []float64{1}); !errors.Is(err, ErrBadName) {
				t.Errorf("CreateDataset(%q): got %v, want ErrBadName", name, err)
			}
		}
		if _, err := root.CreateDataset("a.b", []float64{1}); err != nil {
			t.Errorf("CreateDataset(a.b): %v", err)
		}
	})

	members, err := f.Root().Members()
	if err != nil {
		t.Fatalf("Members failed: %v", err)
	}
	if len(members) != 1 || members[0] != "a.b" {
		t.Errorf("members = %v, want [a.b]", members)
	}
}

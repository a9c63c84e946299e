package hdf5

import (
	"errors"
	"testing"
)

func TestWalk(t *testing.T) {
	f := roundTrip(t, func(root *Group) {
		g, err := root.CreateGroup("g")
		if err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if _, err := g.CreateDataset("d", []int32{1}); err != nil {
			t.Fatalf("CreateDataset failed: %v", err)
		}
		if _, err := root.CreateDataset("top", []int32{1}); err != nil {
			t.Fatalf("CreateDataset failed: %v", err)
		}
	})

	var groups, datasets []string
	err := Walk(f.Root(), func(path string, obj interface{}, err error) error {
		if err != nil {
			return err
		}
		switch obj.(type) {
		case *Group:
			groups = append(groups, path)
		case *Dataset:
			datasets = append(datasets, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(groups) != 2 || groups[0] != "/" || groups[1] != "/g" {
		t.Errorf("Expected groups [/ /g], got %v", groups)
	}
	if len(datasets) != 2 {
		t.Errorf("Expected 2 datasets, got %v", datasets)
	}
}

func TestWalkSkipAndStop(t *testing.T) {
	f := roundTrip(t, func(root *Group) {
		g, _ := root.CreateGroup("skip")
		g.CreateDataset("hidden", []int32{1})
		root.CreateDataset("seen", []int32{1})
	})

	var seen []string
	err := Walk(f.Root(), func(path string, obj interface{}, err error) error {
		if path == "/skip" {
			return ErrSkipGroup
		}
		seen = append(seen, path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	for _, p := range seen {
		if p == "/skip/hidden" {
			t.Error("Expected /skip members to be skipped")
		}
	}

	stop := errors.New("stop")
	err = Walk(f.Root(), func(path string, obj interface{}, err error) error {
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("Expected stop error, got %v", err)
	}
}

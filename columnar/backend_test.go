package columnar

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"":         ModeRecreate,
		"recreate": ModeRecreate,
		"NEW":      ModeNew,
		"Create":   ModeCreate,
		"update":   ModeUpdate,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseMode("append")
	assert.ErrorIs(t, err, ErrUnsupportedMode)
}

func TestCreateModes(t *testing.T) {
	for _, create := range []struct {
		name string
		fn   func(string, Mode) (Backend, error)
	}{
		{"root", func(p string, m Mode) (Backend, error) { return CreateRoot(p, m) }},
		{"hdf5", func(p string, m Mode) (Backend, error) { return CreateH5(p, m) }},
	} {
		t.Run(create.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out")
			require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

			_, err := create.fn(path, ModeNew)
			assert.True(t, errors.Is(err, os.ErrExist), "NEW on existing file: %v", err)
			_, err = create.fn(path, ModeCreate)
			assert.ErrorIs(t, err, os.ErrExist)
			_, err = create.fn(path, ModeUpdate)
			assert.ErrorIs(t, err, ErrUnsupportedMode)

			b, err := create.fn(path, ModeRecreate)
			require.NoError(t, err)
			assert.NotEmpty(t, b.RunID())
			require.NoError(t, b.Close())
		})
	}
}

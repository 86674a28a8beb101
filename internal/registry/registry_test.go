package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siegfriedkaidisch/ROMIS/internal/errors"
)

type widget struct {
	size float64
}

func TestResolve(t *testing.T) {
	r := New[*widget]("widget")
	r.Register("basic", func(s Settings) (*widget, error) {
		size, err := s.Float("size", 1.0)
		if err != nil {
			return nil, err
		}
		return &widget{size: size}, nil
	})

	t.Run("known name with settings", func(t *testing.T) {
		w, err := r.Resolve("basic", Settings{"size": 2.5})
		require.NoError(t, err)
		assert.Equal(t, 2.5, w.size)
	})

	t.Run("name matching is case-insensitive", func(t *testing.T) {
		w, err := r.Resolve("BASIC", nil)
		require.NoError(t, err)
		assert.Equal(t, 1.0, w.size)
	})

	t.Run("unknown name is a configuration error", func(t *testing.T) {
		_, err := r.Resolve("bogus", nil)
		require.Error(t, err)
		assert.True(t, errors.IsConfiguration(err))
		assert.Contains(t, err.Error(), "basic")
	})

	t.Run("bad setting type is a configuration error", func(t *testing.T) {
		_, err := r.Resolve("basic", Settings{"size": "huge"})
		require.Error(t, err)
		assert.True(t, errors.IsConfiguration(err))
	})
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := New[int]("thing")
	r.Register("a", func(Settings) (int, error) { return 0, nil })
	assert.Panics(t, func() {
		r.Register("A", func(Settings) (int, error) { return 0, nil })
	})
}

func TestSettingsAccessors(t *testing.T) {
	s := Settings{
		"f": 1.5,
		"i": 3,
		"b": true,
		"s": "name",
	}

	f, err := s.Float("f", 0)
	require.NoError(t, err)
	assert.Equal(t, 1.5, f)

	f, err = s.Float("i", 0) // ints promote to float
	require.NoError(t, err)
	assert.Equal(t, 3.0, f)

	i, err := s.Int("i", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, i)

	b, err := s.Bool("b", false)
	require.NoError(t, err)
	assert.True(t, b)

	str, err := s.String("s", "")
	require.NoError(t, err)
	assert.Equal(t, "name", str)

	// Absent keys fall back to defaults.
	f, err = s.Float("missing", 7.0)
	require.NoError(t, err)
	assert.Equal(t, 7.0, f)

	_, err = s.Int("f", 0) // non-integral float rejected
	assert.Error(t, err)
}

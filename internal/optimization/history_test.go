package optimization

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

func TestHistoryAccessors(t *testing.T) {
	h := NewHistory()
	assert.Zero(t, h.Len())
	assert.Nil(t, h.Last())
	assert.Nil(t, h.FinalAtoms())

	atoms, err := structure.NewAtoms([]string{"H"}, []structure.Vec{{0, 0, 0}})
	require.NoError(t, err)

	h.Append(&Step{Energy: 1.0, Atoms: atoms})
	h.Append(&Step{Energy: -2.0, Atoms: atoms})

	assert.Equal(t, 2, h.Len())
	assert.Equal(t, -2.0, h.Last().Energy)
	assert.Equal(t, 1.0, h.At(0).Energy)
	assert.Equal(t, []float64{1.0, -2.0}, h.Energies())
	assert.Same(t, atoms, h.FinalAtoms())

	// Steps() is a snapshot: appending must not disturb it.
	snap := h.Steps()
	h.Append(&Step{Energy: 3.0, Atoms: atoms})
	assert.Len(t, snap, 2)
	assert.Equal(t, 3, h.Len())
}

func TestHistoryConcurrentReadWhileAppend(t *testing.T) {
	h := NewHistory()
	atoms, err := structure.NewAtoms([]string{"H"}, []structure.Vec{{0, 0, 0}})
	require.NoError(t, err)

	const n = 200
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			h.Append(&Step{Energy: float64(i), Atoms: atoms})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			// Readers only ever observe a fully constructed prefix.
			if last := h.Last(); last != nil {
				assert.NotNil(t, last.Atoms)
			}
			_ = h.Energies()
		}
	}()
	wg.Wait()
	assert.Equal(t, n, h.Len())
}

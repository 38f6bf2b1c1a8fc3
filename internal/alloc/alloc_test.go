package alloc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failing struct{ calls int }

func (f *failing) Alloc(int) ([]byte, error) {
	f.calls++
	return nil, errors.New("out of memory")
}

func TestPlacement_PrefersExternal(t *testing.T) {
	ext := NewLimited(1024)
	p := Placement{External: ext, General: Heap{}}

	b, err := p.Alloc(512)
	require.NoError(t, err)
	assert.Equal(t, RegionExternal, b.Region)
	assert.Len(t, b.Data, 512)
	assert.Equal(t, 512, ext.Used())
}

func TestPlacement_FallsBackWhenExternalFull(t *testing.T) {
	ext := NewLimited(100)
	p := Placement{External: ext, General: Heap{}}

	b, err := p.Alloc(101)
	require.NoError(t, err)
	assert.Equal(t, RegionGeneral, b.Region)
	assert.Len(t, b.Data, 101, "fallback block has the same size")
	assert.Equal(t, 0, ext.Used())
}

func TestPlacement_FallsBackOnExternalError(t *testing.T) {
	ext := &failing{}
	p := Placement{External: ext, General: Heap{}}

	b, err := p.Alloc(64)
	require.NoError(t, err)
	assert.Equal(t, RegionGeneral, b.Region)
	assert.Equal(t, 1, ext.calls)
}

func TestPlacement_NoExternal(t *testing.T) {
	b, err := Placement{General: Heap{}}.Alloc(8)
	require.NoError(t, err)
	assert.Equal(t, RegionGeneral, b.Region)
}

func TestPlacement_BothFail(t *testing.T) {
	p := Placement{External: NewLimited(0), General: NewLimited(0)}
	_, err := p.Alloc(1)
	assert.ErrorIs(t, err, ErrExhausted)

	_, err = Placement{}.Alloc(1)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestPlacement_NegativeSize(t *testing.T) {
	_, err := Placement{General: Heap{}}.Alloc(-1)
	assert.Error(t, err)
}

func TestLimited_Free(t *testing.T) {
	l := NewLimited(10)
	_, err := l.Alloc(10)
	require.NoError(t, err)
	_, err = l.Alloc(1)
	assert.ErrorIs(t, err, ErrExhausted)

	l.Free(4)
	assert.Equal(t, 6, l.Used())
	_, err = l.Alloc(4)
	assert.NoError(t, err)

	l.Free(100)
	assert.Equal(t, 0, l.Used())
}

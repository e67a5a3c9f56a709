package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type note struct {
	Text string `json:"text"`
}

func TestJournal_AppendAfterReopen(t *testing.T) {
	dir := t.TempDir()

	j, err := Open[note](dir, "note_", Options{SegmentThreshold: 10, MaxSegments: 5})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), j.Head())

	for i, text := range []string{"a", "b", "c"} {
		idx, err := j.Append(text, note{Text: text})
		require.NoError(t, err)
		assert.Equal(t, uint64(i+1), idx)
	}

	tail, err := j.After(1)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, uint64(2), tail[0].Index)
	assert.Equal(t, "c", tail[1].Value.Text)

	none, err := j.After(3)
	require.NoError(t, err)
	assert.Empty(t, none)

	require.NoError(t, j.Close())

	j, err = Open[note](dir, "note_", Options{SegmentThreshold: 10, MaxSegments: 5})
	require.NoError(t, err)
	defer j.Close()

	assert.Equal(t, uint64(3), j.Head())
	all, err := j.After(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Value.Text)
}

func TestJournal_Nil(t *testing.T) {
	var j *Journal[note]

	_, err := j.Append("x", note{})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = j.After(0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, uint64(0), j.Head())
	assert.ErrorIs(t, j.Close(), ErrClosed)
}

func TestJournal_UseAfterClose(t *testing.T) {
	j, err := Open[note](t.TempDir(), "note_", Options{SegmentThreshold: 10, MaxSegments: 5})
	require.NoError(t, err)

	_, err = j.Append("a", note{Text: "a"})
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	_, err = j.Append("b", note{Text: "b"})
	assert.ErrorIs(t, err, ErrClosed)
	_, err = j.After(0)
	assert.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, uint64(0), j.Head())
}

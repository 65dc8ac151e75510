package orderedmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueKeepsInsertionOrder(t *testing.T) {
	m := New[int, string]()

	isFirst, added := m.EnqueueIfNotExist(3, "three")
	assert.True(t, isFirst)
	assert.True(t, added)

	isFirst, added = m.EnqueueIfNotExist(1, "one")
	assert.False(t, isFirst)
	assert.True(t, added)

	isFirst, added = m.EnqueueIfNotExist(2, "two")
	assert.False(t, isFirst)
	assert.True(t, added)

	assert.Equal(t, []string{"three", "one", "two"}, m.AsSlice())
	assert.Equal(t, "three", m.First())
	assert.Equal(t, 3, m.Len())
}

func TestEnqueueExistingKeyIsIgnored(t *testing.T) {
	m := New[int, string]()

	_, added := m.EnqueueIfNotExist(1, "one")
	require.True(t, added)

	isFirst, added := m.EnqueueIfNotExist(1, "uno")
	assert.False(t, isFirst)
	assert.False(t, added)

	assert.Equal(t, "one", m.Get(1))
	assert.Equal(t, 1, m.Len())
}

func TestDequeue(t *testing.T) {
	m := New[int, string]()

	m.EnqueueIfNotExist(1, "one")
	m.EnqueueIfNotExist(2, "two")
	m.EnqueueIfNotExist(3, "three")

	assert.Equal(t, "two", m.Dequeue(2))
	assert.Equal(t, []string{"one", "three"}, m.AsSlice())

	assert.Equal(t, "one", m.Dequeue(1))
	assert.Equal(t, "three", m.First())

	assert.Equal(t, "three", m.Dequeue(3))
	assert.Zero(t, m.Len())
	assert.Empty(t, m.AsSlice())
	assert.Empty(t, m.First())
}

func TestDequeueMissingKeyReturnsZeroValue(t *testing.T) {
	m := New[int, *struct{ x int }]()

	assert.Nil(t, m.Dequeue(9))
}

func TestReenqueueAfterDequeueMovesToTheBack(t *testing.T) {
	m := New[int, string]()

	m.EnqueueIfNotExist(1, "one")
	m.EnqueueIfNotExist(2, "two")

	m.Dequeue(1)

	isFirst, added := m.EnqueueIfNotExist(1, "one")
	assert.False(t, isFirst)
	assert.True(t, added)

	assert.Equal(t, []string{"two", "one"}, m.AsSlice())
}

func TestForeachAbortsWhenFnReturnsFalse(t *testing.T) {
	m := New[int, int]()

	m.EnqueueIfNotExist(1, 10)
	m.EnqueueIfNotExist(2, 20)
	m.EnqueueIfNotExist(3, 30)

	var seen []int
	m.Foreach(func(v int) bool {
		seen = append(seen, v)
		return len(seen) < 2
	})

	assert.Equal(t, []int{10, 20}, seen)
}

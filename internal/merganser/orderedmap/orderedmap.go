// Package orderedmap provides a map whose elements can be iterated in the
// order in that they were added.
package orderedmap

// Map is a map datastructure that allows accessing it's elements in a
// fixed order.
type Map[K comparable, V any] struct {
	head    *entry[K, V]
	tail    *entry[K, V]
	m       map[K]*entry[K, V]
	zeroval V
}

type entry[K comparable, V any] struct {
	prev *entry[K, V]
	next *entry[K, V]
	val  V
}

func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{m: map[K]*entry[K, V]{}}
}

// EnqueueIfNotExist appends val to the map if K does not exist.
func (m *Map[K, V]) EnqueueIfNotExist(key K, val V) (isFirst, added bool) {
	if _, exist := m.m[key]; exist {
		return false, false
	}

	e := &entry[K, V]{prev: m.tail, val: val}
	if m.tail == nil {
		m.head = e
	} else {
		m.tail.next = e
	}
	m.tail = e
	m.m[key] = e

	return len(m.m) == 1, true
}

// Get returns the value for the given key.
// If the key does not exist, the zero value is returned.
func (m *Map[K, V]) Get(key K) V {
	e, exist := m.m[key]
	if !exist {
		return m.zeroval
	}

	return e.val
}

// Dequeue removes the value with the key from the map and returns it.
// If the key does not exist in the map, the zero value is returned.
func (m *Map[K, V]) Dequeue(key K) V {
	e, exist := m.m[key]
	if !exist {
		return m.zeroval
	}
	delete(m.m, key)

	if e.prev == nil {
		m.head = e.next
	} else {
		e.prev.next = e.next
	}

	if e.next == nil {
		m.tail = e.prev
	} else {
		e.next.prev = e.prev
	}

	e.prev = nil
	e.next = nil

	return e.val
}

// First returns the first element in the map.
// If the map is empty, the zero value is returned.
func (m *Map[K, V]) First() V {
	if m.head == nil {
		return m.zeroval
	}

	return m.head.val
}

// Len returns the number of elements in the map.
func (m *Map[K, V]) Len() int {
	return len(m.m)
}

// Foreach iterates through the map in order.
// When fn returns false the iteration is aborted.
func (m *Map[K, V]) Foreach(fn func(V) bool) {
	for e := m.head; e != nil; e = e.next {
		if !fn(e.val) {
			return
		}
	}
}

// AsSlice returns a new slice containing the elements of the Map in order.
func (m *Map[K, V]) AsSlice() []V {
	result := make([]V, 0, len(m.m))

	for e := m.head; e != nil; e = e.next {
		result = append(result, e.val)
	}

	return result
}

package bench

import (
	"bytes"
	"encoding/json"
	"iter"
	"slices"
)

// OrderedMap is a string-keyed map that remembers insertion order.
// Column order of every export is derived from it.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: make(map[string]V)}
}

// Set stores value under key. A new key is appended to the order, an existing
// key keeps its position.
func (m *OrderedMap[V]) Set(key string, value V) {
	if m.values == nil {
		m.values = make(map[string]V)
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *OrderedMap[V]) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

func (m *OrderedMap[V]) Len() int {
	return len(m.keys)
}

// Keys returns a copy of the keys in insertion order.
func (m *OrderedMap[V]) Keys() []string {
	return slices.Clone(m.keys)
}

func (m *OrderedMap[V]) Values() []V {
	values := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		values = append(values, m.values[k])
	}
	return values
}

func (m *OrderedMap[V]) All() iter.Seq2[string, V] {
	return func(yield func(string, V) bool) {
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// KeyDiff reports the keys of other that m lacks (missing) and the keys of m
// that other lacks (unexpected). Both are empty when the key sets are equal.
func (m *OrderedMap[V]) KeyDiff(other keyed) (missing, unexpected []string) {
	for _, k := range other.orderedKeys() {
		if !m.Has(k) {
			missing = append(missing, k)
		}
	}
	for _, k := range m.keys {
		if !other.hasKey(k) {
			unexpected = append(unexpected, k)
		}
	}
	return missing, unexpected
}

type keyed interface {
	orderedKeys() []string
	hasKey(key string) bool
}

func (m *OrderedMap[V]) orderedKeys() []string { return m.keys }
func (m *OrderedMap[V]) hasKey(key string) bool { return m.Has(key) }

// MarshalJSON renders the map as a JSON object in insertion order.
func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

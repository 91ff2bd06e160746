package engine

import "math/rand"

// Cache is the shuffled stack of remaining indices. The top of the stack is drawn next.
type Cache struct {
	items []int
	pos   map[int]int
}

// NewCache builds a cache holding indices in the given order.
func NewCache(indices []int) *Cache {
	c := &Cache{
		items: make([]int, 0, len(indices)),
		pos:   make(map[int]int, len(indices)),
	}
	for _, idx := range indices {
		c.Push(idx)
	}
	return c
}

// Shuffle permutes the cache uniformly (Fisher–Yates).
func (c *Cache) Shuffle(rnd *rand.Rand) {
	for i := len(c.items) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		c.items[i], c.items[j] = c.items[j], c.items[i]
	}
	for i, idx := range c.items {
		c.pos[idx] = i
	}
}

// Push places idx on top. Indices already present are left where they are.
func (c *Cache) Push(idx int) bool {
	if _, ok := c.pos[idx]; ok {
		return false
	}
	c.pos[idx] = len(c.items)
	c.items = append(c.items, idx)
	return true
}

// Pop removes and returns the top index.
func (c *Cache) Pop() (int, bool) {
	if len(c.items) == 0 {
		return 0, false
	}
	last := len(c.items) - 1
	idx := c.items[last]
	c.items = c.items[:last]
	delete(c.pos, idx)
	return idx, true
}

// Remove deletes idx wherever it sits. The former top takes its slot.
func (c *Cache) Remove(idx int) bool {
	at, ok := c.pos[idx]
	if !ok {
		return false
	}
	last := len(c.items) - 1
	moved := c.items[last]
	c.items[at] = moved
	c.pos[moved] = at
	c.items = c.items[:last]
	delete(c.pos, idx)
	return true
}

// Contains reports whether idx is still remaining.
func (c *Cache) Contains(idx int) bool {
	_, ok := c.pos[idx]
	return ok
}

// Len returns the number of remaining indices.
func (c *Cache) Len() int {
	return len(c.items)
}

// Snapshot copies the indices bottom to top.
func (c *Cache) Snapshot() []int {
	out := make([]int, len(c.items))
	copy(out, c.items)
	return out
}

package query

import (
	"container/list"
	"sync"
)

// LRUCache is a fixed-capacity cache that evicts the least recently used entry.
type LRUCache[K comparable, V any] struct {
	mu       sync.Mutex
	capacity int
	list     *list.List
	cache    map[K]*list.Element
}

type cacheEntry[K comparable, V any] struct {
	key   K
	value V
}

func NewLRUCache[K comparable, V any](capacity int) *LRUCache[K, V] {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUCache[K, V]{
		capacity: capacity,
		list:     list.New(),
		cache:    make(map[K]*list.Element),
	}
}

func (lru *LRUCache[K, V]) Get(key K) (V, bool) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if element, exists := lru.cache[key]; exists {
		lru.list.MoveToFront(element)
		return element.Value.(*cacheEntry[K, V]).value, true
	}
	var zero V
	return zero, false
}

func (lru *LRUCache[K, V]) Put(key K, value V) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if element, exists := lru.cache[key]; exists {
		element.Value.(*cacheEntry[K, V]).value = value
		lru.list.MoveToFront(element)
		return
	}

	element := lru.list.PushFront(&cacheEntry[K, V]{key: key, value: value})
	lru.cache[key] = element

	if lru.list.Len() > lru.capacity {
		lru.evictOldest()
	}
}

func (lru *LRUCache[K, V]) evictOldest() {
	element := lru.list.Back()
	if element != nil {
		delete(lru.cache, element.Value.(*cacheEntry[K, V]).key)
		lru.list.Remove(element)
	}
}

func (lru *LRUCache[K, V]) Remove(key K) {
	lru.mu.Lock()
	defer lru.mu.Unlock()

	if element, exists := lru.cache[key]; exists {
		delete(lru.cache, key)
		lru.list.Remove(element)
	}
}

func (lru *LRUCache[K, V]) Capacity() int {
	return lru.capacity
}

func (lru *LRUCache[K, V]) Len() int {
	lru.mu.Lock()
	defer lru.mu.Unlock()
	return lru.list.Len()
}

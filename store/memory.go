package store

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// Memory is an in-process DocumentStore. Documents go through a bson
// round-trip on every read and write so callers see the same value types a
// mongo cursor would produce. Query supports top-level equality filters only.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
	failures    map[string]error
}

type memCollection struct {
	order []string
	docs  map[string]bson.M
}

func NewMemory() *Memory {
	return &Memory{
		collections: map[string]*memCollection{},
		failures:    map[string]error{},
	}
}

// FailOn makes the given operation return err. An empty code matches every document.
func (m *Memory) FailOn(op, collection, code string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op+"/"+collection+"/"+code] = err
}

func (m *Memory) failure(op, collection, code string) error {
	if err, ok := m.failures[op+"/"+collection+"/"+code]; ok {
		return err
	}
	if err, ok := m.failures[op+"/"+collection+"/"]; ok {
		return err
	}
	return nil
}

func (m *Memory) coll(name string) *memCollection {
	c, ok := m.collections[name]
	if !ok {
		c = &memCollection{docs: map[string]bson.M{}}
		m.collections[name] = c
	}
	return c
}

func clone(doc bson.M) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	out := bson.M{}
	if err := bson.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Memory) Get(_ context.Context, collection, code string) (bson.M, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("get", collection, code); err != nil {
		return nil, err
	}
	c, ok := m.collections[collection]
	if !ok {
		return nil, ErrNotFound
	}
	doc, ok := c.docs[code]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(doc)
}

func (m *Memory) Query(_ context.Context, collection string, filter bson.M) ([]bson.M, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("query", collection, ""); err != nil {
		return nil, err
	}
	out := []bson.M{}
	c, ok := m.collections[collection]
	if !ok {
		return out, nil
	}
	for _, code := range c.order {
		doc := c.docs[code]
		if !matches(doc, filter) {
			continue
		}
		cp, err := clone(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	return out, nil
}

func matches(doc, filter bson.M) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func (m *Memory) Create(_ context.Context, collection string, doc bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	code, _ := doc["code"].(string)
	if err := m.failure("create", collection, code); err != nil {
		return err
	}
	if code == "" {
		return fmt.Errorf("create %s: document has no code", collection)
	}
	c := m.coll(collection)
	if _, exists := c.docs[code]; exists {
		return fmt.Errorf("create %s: duplicate code %s", collection, code)
	}
	cp, err := clone(doc)
	if err != nil {
		return err
	}
	c.docs[code] = cp
	c.order = append(c.order, code)
	return nil
}

func (m *Memory) Update(_ context.Context, collection, code string, fields bson.M) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("update", collection, code); err != nil {
		return err
	}
	doc, ok := m.coll(collection).docs[code]
	if !ok {
		return ErrNotFound
	}
	patch, err := clone(fields)
	if err != nil {
		return err
	}
	for k, v := range patch {
		doc[k] = v
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("delete", collection, code); err != nil {
		return err
	}
	c := m.coll(collection)
	if _, ok := c.docs[code]; !ok {
		return ErrNotFound
	}
	delete(c.docs, code)
	for i, existing := range c.order {
		if existing == code {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of documents in a collection.
func (m *Memory) Count(collection string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[collection]
	if !ok {
		return 0
	}
	return len(c.docs)
}

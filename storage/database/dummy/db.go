package dummydb

import (
	"sync"

	"github.com/trezcool/prox/core/hal"
	"github.com/trezcool/prox/core/project"
)

const baseHref = "dummy://api"

type (
	// DB is an in-memory stand-in for the HAL API.
	DB struct {
		projects     *table[project.Project]
		modules      *table[project.Module]
		studyCourses *table[project.StudyCourse]
		tags         *table[project.Tag]
		proposals    *table[project.Proposal]

		relMu           sync.RWMutex
		moduleCourse    map[string]string   // module ID -> study course ID
		projectModules  map[string][]string // project ID -> module IDs
		projectTags     map[string][]string // project ID -> tag IDs
		recommendations map[string][]string // tag ID -> recommended tag IDs
	}

	table[T any] struct {
		sync.RWMutex
		ids  []string // insertion order
		rows map[string]*T
	}
)

func Open() (*DB, error) {
	db := &DB{
		projects:        newTable[project.Project](),
		modules:         newTable[project.Module](),
		studyCourses:    newTable[project.StudyCourse](),
		tags:            newTable[project.Tag](),
		proposals:       newTable[project.Proposal](),
		moduleCourse:    make(map[string]string),
		projectModules:  make(map[string][]string),
		projectTags:     make(map[string][]string),
		recommendations: make(map[string][]string),
	}
	return db, nil
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]*T)}
}

func (t *table[T]) insert(id string, row T) {
	t.Lock()
	defer t.Unlock()
	if _, ok := t.rows[id]; !ok {
		t.ids = append(t.ids, id)
	}
	t.rows[id] = &row
}

func (t *table[T]) get(id string) (T, bool) {
	t.RLock()
	defer t.RUnlock()
	if row, ok := t.rows[id]; ok {
		return *row, true
	}
	var zero T
	return zero, false
}

func (t *table[T]) all() []T {
	t.RLock()
	defer t.RUnlock()
	rows := make([]T, 0, len(t.ids))
	for _, id := range t.ids {
		rows = append(rows, *t.rows[id])
	}
	return rows
}

func (t *table[T]) remove(id string) bool {
	t.Lock()
	defer t.Unlock()
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, rid := range t.ids {
		if rid == id {
			t.ids = append(t.ids[:i], t.ids[i+1:]...)
			break
		}
	}
	return true
}

func links(collection, id string, rels ...string) hal.Links {
	self := baseHref + "/" + collection + "/" + id
	lnks := hal.Links{"self": {Href: self}}
	for _, rel := range rels {
		lnks[rel] = hal.Link{Href: self + "/" + rel}
	}
	return lnks
}

package dummydb

import (
	"sync"

	"github.com/krodrigz/matricula/core/admission"
	"github.com/krodrigz/matricula/core/quota"
)

type (
	// DB is an in-memory database used in tests and local development.
	DB struct {
		applications *applicationTable
		quotas       *quotaTable
	}

	applicationTable struct {
		apps     map[string]*admission.Application
		docs     map[string]*admission.Document
		comments []admission.Comment
		mutex    sync.RWMutex
	}

	quotaTable struct {
		t     map[string]*quota.Quota
		mutex sync.RWMutex
	}
)

func Open() (*DB, error) {
	db := &DB{
		applications: &applicationTable{
			apps: make(map[string]*admission.Application),
			docs: make(map[string]*admission.Document),
		},
		quotas: &quotaTable{t: make(map[string]*quota.Quota)},
	}
	return db, nil
}

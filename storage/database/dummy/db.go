package dummydb

import (
	"sync"

	"github.com/lumiclass/teacherdir/core/directory"
)

type (
	DB struct {
		directory *directoryTable
	}

	directoryTable struct {
		sync.RWMutex
		snap      *directory.Snapshot
		decisions []directory.MatchDecision
	}
)

func Open() (*DB, error) {
	db := &DB{
		directory: &directoryTable{},
	}
	return db, nil
}

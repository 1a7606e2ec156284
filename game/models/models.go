// Package models defines the persisted entities of the game backend.
//
// Every entity embeds storage.Model and is saved through a storage.Store. Nested
// value types (characters, items, arena instances) are stored as JSON columns.
package models

import (
	"github.com/google/uuid"
)

// MetaDescribed is embedded by nested values described by a meta entity
type MetaDescribed struct {
	// Id is unique among all values of the type
	Id string
	// MetaId is the id of the meta entity describing the value
	MetaId string
}

// NewMetaDescribed creates a value description with a fresh id
func NewMetaDescribed(metaId string) MetaDescribed {
	if metaId == "" {
		metaId = "NULL"
	}
	return MetaDescribed{
		Id:     uuid.NewString(),
		MetaId: metaId,
	}
}

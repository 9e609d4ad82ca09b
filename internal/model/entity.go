// Package model holds the persisted entities of the PMS backend. The
// structs double as bun models: the struct tags describe table names,
// primary keys and the relations the query layer may eager-load. JSON
// tags are intentionally absent; handlers project entities into their
// own response types.
package model

// Entity is implemented by every row that carries its own identity. The
// id is assigned by the store on insert and is zero before that.
type Entity interface {
	GetID() int64
}

// Link is a row owned by another entity: a join row or a child such as a
// user detail. BindOwner stamps the owner's id once it is known, which
// lets an owner be created together with its links in one call.
type Link interface {
	BindOwner(ownerID int64)
}

// Owner exposes the links that must be written together with an entity.
type Owner interface {
	Links() []Link
}

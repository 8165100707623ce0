package sqlstore

import (
	"database/sql"
	"fmt"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

// NewDocumentStoreFromPersistence builds a document store from a
// go-persistence-bun client.
func NewDocumentStoreFromPersistence(client *persistence.Client) (*DocumentStore, error) {
	db, err := resolveBunDB(client)
	if err != nil {
		return nil, err
	}
	return NewDocumentStore(db)
}

// NewSQLiteDB wraps an opened sqlite connection in a bun DB. Used by
// embedded hosts and tests.
func NewSQLiteDB(sqldb *sql.DB) *bun.DB {
	return bun.NewDB(sqldb, sqlitedialect.New())
}

// NewPostgresDB wraps an opened postgres connection in a bun DB.
func NewPostgresDB(sqldb *sql.DB) *bun.DB {
	return bun.NewDB(sqldb, pgdialect.New())
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client %T", candidate)
	}
}

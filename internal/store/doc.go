// Package store provides durable storage for catalog items and their
// availability rules, backed by SQLite.
//
// The store satisfies the batch executor's item-store contract: rules are
// fetched lazily (an item with no availability row reads as an empty
// record), saves are upserts, and a read-through cache is invalidated
// explicitly after each write.
package store

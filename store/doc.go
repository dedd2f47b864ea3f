// Package store provides durable key/value persistence for the serialized session fields.
//
// # Contract
//
// [Store.ReadAll] returns every persisted field; absent fields are missing from the map.
// [Store.WriteAll] is atomic from the caller's perspective and replaces the whole record:
// a reader observes either the previous record or the new one, never a mix. There is no
// delete operation; a record is only ever replaced.
//
// # Architecture boundaries
//
// This package owns the storage backends ([RedisStore], [FileStore], [MemoryStore]) and the
// stable key names. It does NOT interpret field values or decide session validity; that
// belongs to the manager.
package store

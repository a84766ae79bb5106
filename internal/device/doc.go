// Package device resolves device targets to canonical device IDs.
//
// Devices are addressed on the wire by a stable ID, a current number or a
// legacy number (the numbering scheme that preceded the current one). The
// notification queue stores only the canonical ID, so a message enqueued
// under one alias is claimable under any other. Aliases are never cached in
// process; the devices table is the single source of truth.
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	registry.SetLogger(log)
//	id, err := registry.Resolve(ctx, "A-17") // legacy number
package device

/*
Package engine is the facade over the storage optimization pipeline.

An Engine ties the write-path policy (dedup, delta, compression,
tiering), the pack builder, the two-level object cache, and a BlobStore
for off-descriptor payloads into one surface:

	eng, err := engine.New(cfg)
	obj, err := eng.PutObject(ctx, data, hash)
	data, err := eng.GetObject(ctx, hash)
	unit, index, err := eng.BuildPack(ctx, hashes)

Writes flow dedup -> delta (when a similarity hint is supplied) ->
whole-object compression -> raw, and the winning representation decides
the storage tier. Reads reverse whichever representation won, walking
delta chains iteratively and verifying checksums on every decode.
*/
package engine

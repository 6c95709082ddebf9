/*
Package tiering decides how each incoming object is represented and
keeps the content-addressed dedup registry.

Every write runs the same pipeline:

	CheckDedup -> TryDelta -> TryCompress -> ChooseTier -> Commit

A dedup hit increments the canonical object's reference count and
returns it unchanged. Otherwise the policy tries a delta against the
supplied similar-object hint, falls back to whole-object compression,
falls back again to raw bytes, and finally classifies the stored size
into a tier: inline up to 1 KiB, chunked up to 10 KiB, external up to
50 KiB, delta up to 1 MiB, packed above that. Delta-encoded objects
are always tagged with the delta tier regardless of size.

Declines along the way (delta too small a win, compression below the
savings bar) are ordinary control flow; the pipeline just falls
through to the next strategy. A failed delta attempt leaves no trace
on the base object.

Reference counts only signal reclamation eligibility. Physical
deletion belongs to the surrounding garbage collector, never to this
package.
*/
package tiering

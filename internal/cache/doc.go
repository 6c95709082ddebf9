/*
Package cache implements the engine's two-level in-memory object
cache.

L1 is the hot level: small (100 entries by default), short TTL, strict
LRU eviction. L2 is the warm level: larger (1000 entries), longer TTL,
strict insertion-order FIFO eviction. An entry evicted from L1 is not
discarded — it demotes into L2 for a second life; an L2 entry whose
access count climbs past the promotion threshold moves up into L1.

All bookkeeping is synchronous: TTL expiry happens on the access that
observes it, and there is no background sweeper. The cache owns its
own copies of cached bytes; callers never share buffers with it.
*/
package cache

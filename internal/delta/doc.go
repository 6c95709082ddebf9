/*
Package delta computes and applies copy/insert deltas between a base
and a target byte sequence.

The encoder scans the target left to right and greedily takes the
longest run it can find anywhere in the base; runs of at least the
configured minimum copy length become Copy instructions, everything
else accumulates into Insert instructions. The search is a plain
linear scan over base offsets — correctness and determinism over
asymptotic cleverness. For identical inputs the instruction stream is
reproducible byte for byte.

Reconstruction cost is bounded by a chain depth cap: a delta whose
base is itself a delta carries depth base+1, and the encoder refuses
to extend a chain past the cap. Application replays instructions with
strict bounds checking; an out-of-range copy is a corruption error.
*/
package delta

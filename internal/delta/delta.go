package delta

import (
	"github.com/gitcas/gitcas/internal/codec"
	"github.com/gitcas/gitcas/internal/config"
	"github.com/gitcas/gitcas/pkg/errors"
	"github.com/gitcas/gitcas/pkg/types"
)

// Encoded instruction overhead used for the savings gate: a copy is
// an opcode plus 32-bit offset and length, an insert is an opcode
// plus 32-bit length plus the literal bytes.
const (
	copyEncodedSize   = 1 + 4 + 4
	insertEncodedSize = 1 + 4
)

// Differ creates and applies deltas under the configured limits.
type Differ struct {
	minTargetSize    int
	maxChainDepth    int
	minCopyLength    int
	savingsThreshold int
}

// NewDiffer builds a Differ from delta configuration.
func NewDiffer(cfg *config.DeltaConfig) *Differ {
	return &Differ{
		minTargetSize:    cfg.MinTargetSize,
		maxChainDepth:    cfg.MaxChainDepth,
		minCopyLength:    cfg.MinCopyLength,
		savingsThreshold: cfg.SavingsThresholdPercent,
	}
}

// MaxChainDepth returns the configured chain depth cap.
func (d *Differ) MaxChainDepth() int {
	return d.maxChainDepth
}

// CreateDelta computes a delta expressing target in terms of base.
// baseDepth is the chain depth of the base object (zero for a
// non-delta base); the produced record carries baseDepth+1. A base
// already at the cap yields (nil, nil): no delta, no error.
func (d *Differ) CreateDelta(base, target []byte, baseDepth int, baseHash, targetHash types.Hash) (*types.DeltaRecord, error) {
	if len(target) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyPayload, "cannot delta-encode empty target").In("delta").During("create")
	}
	if baseDepth < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidInput, "negative chain depth %d", baseDepth).In("delta").During("create")
	}
	if baseDepth >= d.maxChainDepth {
		return nil, nil
	}

	instructions := d.computeInstructions(base, target)

	return &types.DeltaRecord{
		BaseHash:         baseHash,
		TargetHash:       targetHash,
		Instructions:     instructions,
		CompressedSize:   encodedSize(instructions),
		UncompressedSize: int64(len(target)),
		ChainDepth:       baseDepth + 1,
	}, nil
}

// TryCreateDelta applies the full decline policy: targets under the
// minimum size, bases at the depth cap, and deltas that do not clear
// the savings threshold all yield (nil, nil).
func (d *Differ) TryCreateDelta(base, target []byte, baseDepth int, baseHash, targetHash types.Hash) (*types.DeltaRecord, error) {
	if len(target) < d.minTargetSize {
		return nil, nil
	}
	if len(base) == 0 {
		return nil, nil
	}

	rec, err := d.CreateDelta(base, target, baseDepth, baseHash, targetHash)
	if err != nil || rec == nil {
		return rec, err
	}

	if !codec.ShouldCompress(rec.UncompressedSize, rec.CompressedSize, d.savingsThreshold) {
		return nil, nil
	}
	return rec, nil
}

// ApplyDelta replays a delta against base and returns the
// reconstructed target. Out-of-range copies and a final length that
// disagrees with the record are corruption errors.
func (d *Differ) ApplyDelta(base []byte, rec *types.DeltaRecord) ([]byte, error) {
	if rec == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "nil delta record").In("delta").During("apply")
	}

	out := make([]byte, 0, rec.UncompressedSize)
	for i, ins := range rec.Instructions {
		switch ins.Op {
		case types.OpCopy:
			if ins.Offset < 0 || ins.Length <= 0 || ins.Offset+ins.Length > int64(len(base)) {
				return nil, errors.Newf(errors.ErrCodeDeltaCorrupt,
					"copy instruction %d out of range: offset=%d length=%d base=%d",
					i, ins.Offset, ins.Length, len(base)).In("delta").During("apply")
			}
			out = append(out, base[ins.Offset:ins.Offset+ins.Length]...)
		case types.OpInsert:
			if len(ins.Data) == 0 {
				return nil, errors.Newf(errors.ErrCodeDeltaCorrupt, "insert instruction %d carries no data", i).In("delta").During("apply")
			}
			out = append(out, ins.Data...)
		default:
			return nil, errors.Newf(errors.ErrCodeDeltaCorrupt, "unknown instruction op %d", ins.Op).In("delta").During("apply")
		}
	}

	if int64(len(out)) != rec.UncompressedSize {
		return nil, errors.Newf(errors.ErrCodeDeltaCorrupt,
			"reconstructed %d bytes, record says %d", len(out), rec.UncompressedSize).In("delta").During("apply")
	}
	return out, nil
}

// computeInstructions is the greedy matcher. At each target position
// it scans every base offset for the longest common run; ties go to
// the lowest offset, which keeps the output deterministic.
func (d *Differ) computeInstructions(base, target []byte) []types.DeltaInstruction {
	var instructions []types.DeltaInstruction
	var pending []byte

	flushPending := func() {
		if len(pending) > 0 {
			instructions = append(instructions, types.DeltaInstruction{
				Op:   types.OpInsert,
				Data: pending,
			})
			pending = nil
		}
	}

	pos := 0
	for pos < len(target) {
		bestOffset, bestLength := longestMatch(base, target[pos:])
		if bestLength >= d.minCopyLength {
			flushPending()
			instructions = append(instructions, types.DeltaInstruction{
				Op:     types.OpCopy,
				Offset: int64(bestOffset),
				Length: int64(bestLength),
			})
			pos += bestLength
			continue
		}
		pending = append(pending, target[pos])
		pos++
	}
	flushPending()

	return instructions
}

// longestMatch returns the offset and length of the longest run in
// base matching a prefix of remaining. The first offset reaching a
// given length wins.
func longestMatch(base, remaining []byte) (int, int) {
	bestOffset, bestLength := 0, 0
	for offset := 0; offset < len(base); offset++ {
		length := 0
		for offset+length < len(base) && length < len(remaining) && base[offset+length] == remaining[length] {
			length++
		}
		if length > bestLength {
			bestOffset, bestLength = offset, length
		}
	}
	return bestOffset, bestLength
}

func encodedSize(instructions []types.DeltaInstruction) int64 {
	size := int64(0)
	for _, ins := range instructions {
		switch ins.Op {
		case types.OpCopy:
			size += copyEncodedSize
		case types.OpInsert:
			size += insertEncodedSize + int64(len(ins.Data))
		}
	}
	return size
}

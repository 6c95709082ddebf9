package codec

import (
	"github.com/gitcas/gitcas/internal/config"
	"github.com/gitcas/gitcas/pkg/types"
)

// Selector applies the engine's algorithm selection policy. The zero
// config from config.NewDefault gives the documented behavior: skip
// inputs under 1 KiB, lz4 under speed priority, brotli for text,
// zstd over 1 MiB, zlib otherwise.
type Selector struct {
	minCompressSize  int64
	largePayloadSize int64
	sampleSize       int
	printableCutoff  int
	speedPriority    bool
}

// NewSelector builds a Selector from codec configuration.
func NewSelector(cfg *config.CodecConfig) *Selector {
	return &Selector{
		minCompressSize:  config.MustParseSize(cfg.MinCompressSize),
		largePayloadSize: config.MustParseSize(cfg.LargePayloadSize),
		sampleSize:       cfg.TextSampleSize,
		printableCutoff:  cfg.TextPrintableThreshold,
		speedPriority:    cfg.SpeedPriority,
	}
}

// ChooseAlgorithm picks the codec for data. speedPriority overrides
// content classification and returns the fastest codec.
func (s *Selector) ChooseAlgorithm(data []byte, speedPriority bool) types.Algorithm {
	if int64(len(data)) < s.minCompressSize {
		return types.AlgorithmNone
	}
	if speedPriority || s.speedPriority {
		return types.AlgorithmLZ4
	}
	if s.looksLikeText(data) {
		return types.AlgorithmBrotli
	}
	if int64(len(data)) > s.largePayloadSize {
		return types.AlgorithmZstd
	}
	return types.AlgorithmZlib
}

// looksLikeText samples the leading bytes and classifies the content
// as text when the printable fraction clears the configured cutoff.
func (s *Selector) looksLikeText(data []byte) bool {
	sample := data
	if len(sample) > s.sampleSize {
		sample = sample[:s.sampleSize]
	}
	if len(sample) == 0 {
		return false
	}

	printable := 0
	for _, b := range sample {
		if (b >= 0x20 && b < 0x7f) || b == '\n' || b == '\r' || b == '\t' {
			printable++
		}
	}
	return printable*100 >= len(sample)*s.printableCutoff
}

// ShouldCompress reports whether a compressed form is worth keeping:
// true iff compressedSize < originalSize * thresholdPercent / 100.
// With the default threshold of 90 that demands at least 10% savings.
func ShouldCompress(originalSize, compressedSize int64, thresholdPercent int) bool {
	if originalSize <= 0 {
		return false
	}
	return compressedSize*100 < originalSize*int64(thresholdPercent)
}

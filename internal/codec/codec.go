package codec

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/gitcas/gitcas/pkg/errors"
	"github.com/gitcas/gitcas/pkg/types"
)

const (
	// MinLevel and MaxLevel bound the accepted compression level.
	// Each codec maps the level onto its own scale internally.
	MinLevel = 0
	MaxLevel = 9
)

// Compress compresses data with the given algorithm and level and
// returns a payload carrying the checksum of the original bytes.
// The caller decides whether the result is worth keeping (see
// ShouldCompress); Compress itself never declines.
func Compress(data []byte, alg types.Algorithm, level int) (*types.CompressedPayload, error) {
	if len(data) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyPayload, "cannot compress empty payload").In("codec").During("compress")
	}
	if level < MinLevel || level > MaxLevel {
		return nil, errors.Newf(errors.ErrCodeLevelOutOfRange, "compression level %d outside %d-%d", level, MinLevel, MaxLevel).In("codec").During("compress")
	}

	var compressed []byte
	var err error

	switch alg {
	case types.AlgorithmNone:
		compressed = append([]byte(nil), data...)
	case types.AlgorithmLZ4:
		compressed, err = compressLZ4(data, level)
	case types.AlgorithmZlib:
		compressed, err = compressZlib(data, level)
	case types.AlgorithmGzip:
		compressed, err = compressGzip(data, level)
	case types.AlgorithmZstd:
		compressed, err = compressZstd(data, level)
	case types.AlgorithmBrotli:
		compressed, err = compressBrotli(data, level)
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedAlgorithm, "unknown algorithm %q", alg).In("codec").During("compress")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, "compression failed", err).In("codec").During("compress").WithDetail("algorithm", alg)
	}

	return &types.CompressedPayload{
		Algorithm:        alg,
		Level:            level,
		Data:             compressed,
		CompressedSize:   int64(len(compressed)),
		UncompressedSize: int64(len(data)),
		Checksum:         xxhash.Sum64(data),
	}, nil
}

// Decompress reverses Compress and validates the payload: the output
// must be exactly UncompressedSize bytes and reproduce the stored
// checksum. A mismatch is a corruption error.
func Decompress(p *types.CompressedPayload) ([]byte, error) {
	if p == nil || len(p.Data) == 0 {
		return nil, errors.New(errors.ErrCodeEmptyPayload, "cannot decompress empty payload").In("codec").During("decompress")
	}

	var data []byte
	var err error

	switch p.Algorithm {
	case types.AlgorithmNone:
		data = append([]byte(nil), p.Data...)
	case types.AlgorithmLZ4:
		data, err = decompressLZ4(p.Data)
	case types.AlgorithmZlib:
		data, err = decompressZlib(p.Data)
	case types.AlgorithmGzip:
		data, err = decompressGzip(p.Data)
	case types.AlgorithmZstd:
		data, err = decompressZstd(p.Data)
	case types.AlgorithmBrotli:
		data, err = decompressBrotli(p.Data)
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedAlgorithm, "unknown algorithm %q", p.Algorithm).In("codec").During("decompress")
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeChecksumMismatch, "payload does not decode", err).
			In("codec").During("decompress").WithDetail("algorithm", p.Algorithm)
	}

	if int64(len(data)) != p.UncompressedSize {
		return nil, errors.Newf(errors.ErrCodeChecksumMismatch, "decompressed to %d bytes, expected %d", len(data), p.UncompressedSize).
			In("codec").During("decompress")
	}
	if sum := xxhash.Sum64(data); sum != p.Checksum {
		return nil, errors.Newf(errors.ErrCodeChecksumMismatch, "checksum %x does not match stored %x", sum, p.Checksum).
			In("codec").During("decompress")
	}

	return data, nil
}

func compressLZ4(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if err := w.Apply(lz4.CompressionLevelOption(lz4Level(level))); err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressLZ4(data []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
}

func lz4Level(level int) lz4.CompressionLevel {
	switch level {
	case 0:
		return lz4.Fast
	case 1:
		return lz4.Level1
	case 2:
		return lz4.Level2
	case 3:
		return lz4.Level3
	case 4:
		return lz4.Level4
	case 5:
		return lz4.Level5
	case 6:
		return lz4.Level6
	case 7:
		return lz4.Level7
	case 8:
		return lz4.Level8
	default:
		return lz4.Level9
	}
}

func compressZlib(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressZlib(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

func compressGzip(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	return io.ReadAll(r)
}

func compressZstd(data []byte, level int) ([]byte, error) {
	opt := zstd.WithEncoderLevel(zstd.SpeedFastest)
	if level > 0 {
		opt = zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level))
	}
	enc, err := zstd.NewWriter(nil, opt)
	if err != nil {
		return nil, err
	}
	defer func() { _ = enc.Close() }()
	return enc.EncodeAll(data, nil), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

func compressBrotli(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer
	// Brotli quality runs 0-11; the engine's 0-9 maps directly and
	// leaves the two highest qualities unused.
	w := brotli.NewWriterLevel(&buf, level)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressBrotli(data []byte) ([]byte, error) {
	return io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
}

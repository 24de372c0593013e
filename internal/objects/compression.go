// internal/objects/compression.go
package objects

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// compressor wraps one zstd encoder/decoder pair. EncodeAll and DecodeAll
// are safe for concurrent use, so no pooling is needed.
type compressor struct {
	minSize int
	enc     *zstd.Encoder
	dec     *zstd.Decoder
}

func newCompressor(level, minSize int) (*compressor, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}

	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
	)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	return &compressor{
		minSize: minSize,
		enc:     enc,
		dec:     dec,
	}, nil
}

// shouldCompress skips small content, where the frame overhead eats the gain.
func (c *compressor) shouldCompress(size int) bool {
	return size >= c.minSize
}

func (c *compressor) compress(content []byte) []byte {
	return c.enc.EncodeAll(content, make([]byte, 0, len(content)/2))
}

func (c *compressor) decompress(content []byte) ([]byte, error) {
	if !isCompressed(content) {
		return nil, fmt.Errorf("missing zstd frame header")
	}
	out, err := c.dec.DecodeAll(content, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	return out, nil
}

func (c *compressor) close() {
	c.enc.Close()
	c.dec.Close()
}

func isCompressed(content []byte) bool {
	return len(content) >= len(zstdMagic) && bytes.Equal(content[:len(zstdMagic)], zstdMagic)
}

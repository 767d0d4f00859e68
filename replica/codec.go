package replica

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Shared by every call: EncodeAll and DecodeAll are safe for concurrent use.
var (
	encoder = mustEncoder()
	decoder = mustDecoder()
)

func mustEncoder() *zstd.Encoder {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		panic(err)
	}
	return enc
}

func mustDecoder() *zstd.Decoder {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		panic(err)
	}
	return dec
}

// EncodeDelta writes the delta as zstd compressed JSON.
func EncodeDelta(w io.Writer, d StoreDelta) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode delta: %w", err)
	}
	_, err = w.Write(encoder.EncodeAll(raw, nil))
	return err
}

// DecodeDelta reads a delta written by EncodeDelta. Uncompressed JSON is accepted too.
func DecodeDelta(r io.Reader) (StoreDelta, error) {
	var d StoreDelta
	contents, err := io.ReadAll(r)
	if err != nil {
		return d, err
	}
	if bytes.HasPrefix(contents, zstdMagic) {
		if contents, err = decoder.DecodeAll(contents, nil); err != nil {
			return d, fmt.Errorf("decode delta: %w", err)
		}
	}
	if err := json.Unmarshal(contents, &d); err != nil {
		return d, fmt.Errorf("decode delta: %w", err)
	}
	return d, nil
}

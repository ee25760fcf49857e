package checkpoint

import (
	"bytes"
	"fmt"

	"github.com/fortiblox/intcode/pkg/intcode"
	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// digestSize is the length of the checksum prefixed to every value.
const digestSize = 32

var (
	cborEncMode cbor.EncMode
	encoder     *zstd.Encoder
	decoder     *zstd.Decoder
)

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("checkpoint: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(fmt.Sprintf("checkpoint: failed to create zstd encoder: %v", err))
	}
	decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Sprintf("checkpoint: failed to create zstd decoder: %v", err))
	}
}

// Encode serializes a machine state: a blake3 digest of the canonical CBOR
// payload followed by the zstd-compressed payload. Equal states always
// encode to equal bytes.
func Encode(s *intcode.State) ([]byte, error) {
	payload, err := cborEncMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: marshal state: %w", err)
	}

	sum := blake3.Sum256(payload)
	out := make([]byte, digestSize, digestSize+len(payload)/2)
	copy(out, sum[:])
	return encoder.EncodeAll(payload, out), nil
}

// Decode deserializes and validates a state written by Encode.
func Decode(data []byte) (*intcode.State, error) {
	if len(data) < digestSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(data))
	}

	payload, err := decoder.DecodeAll(data[digestSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", ErrCorrupt, err)
	}
	if sum := blake3.Sum256(payload); !bytes.Equal(sum[:], data[:digestSize]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	var s intcode.State
	if err := cbor.Unmarshal(payload, &s); err != nil {
		return nil, fmt.Errorf("%w: unmarshal state: %v", ErrCorrupt, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &s, nil
}

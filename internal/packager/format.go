package packager

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/bianoble/contentpack/internal/descriptor"
)

// Bundle file layout:
//
//	magic "CPKB" | format (1 byte) | compression (1 byte) |
//	manifest length (uint32, big endian) | CBOR manifest | payload
const (
	magic         = "CPKB"
	formatVersion = 1
	headerSize    = len(magic) + 1 + 1 + 4
)

// ErrNotBundle is returned by Open for data without the bundle magic.
var ErrNotBundle = errors.New("not a contentpack bundle")

// Manifest describes a bundle's contents.
type Manifest struct {
	Bundle      string  `cbor:"bundle"`
	Platform    string  `cbor:"platform"`
	Target      string  `cbor:"target"`
	PayloadSize int     `cbor:"payload_size"`
	Entries     []Entry `cbor:"entries"`
}

// Entry is one asset inside the payload.
type Entry struct {
	Path     descriptor.AssetPath         `cbor:"path"`
	Kind     descriptor.Kind              `cbor:"kind"`
	Offset   int                          `cbor:"offset"`
	Size     int                          `cbor:"size"`
	Hash     string                       `cbor:"blake3"`
	Override *descriptor.EncodingOverride `cbor:"override,omitempty"`
	External bool                         `cbor:"external,omitempty"` // affiliated with another bundle
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("packager: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("packager: CBOR decoder initialization failed: " + err.Error())
	}
}

// assetDomainKey keys BLAKE3 so asset hashes cannot collide with hashes
// computed for other purposes.
var assetDomainKey = [32]byte{
	'c', 'o', 'n', 't', 'e', 'n', 't', 'p', 'a', 'c', 'k', '.', 'a', 's', 's', 'e', 't',
}

// HashAsset returns the hex BLAKE3 keyed hash of asset content.
func HashAsset(data []byte) string {
	h, err := blake3.NewKeyed(assetDomainKey[:])
	if err != nil {
		panic("packager: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// encode writes a bundle. payload is the uncompressed concatenation of
// the manifest entries.
func encode(m *Manifest, payload []byte, c Compression) ([]byte, error) {
	m.PayloadSize = len(payload)
	body, used, err := compress(payload, c)
	if err != nil {
		return nil, err
	}
	meta, err := encMode.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}

	var buf bytes.Buffer
	buf.Grow(headerSize + len(meta) + len(body))
	buf.WriteString(magic)
	buf.WriteByte(formatVersion)
	buf.WriteByte(byte(used))
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(meta)))
	buf.Write(meta)
	buf.Write(body)
	return buf.Bytes(), nil
}

// Bundle is a decoded bundle file.
type Bundle struct {
	Manifest    Manifest
	Compression Compression
	payload     []byte
}

// Open parses and verifies a bundle file.
func Open(data []byte) (*Bundle, error) {
	if len(data) < headerSize || string(data[:len(magic)]) != magic {
		return nil, ErrNotBundle
	}
	if v := data[len(magic)]; v != formatVersion {
		return nil, fmt.Errorf("unsupported bundle format %d", v)
	}
	c := Compression(data[len(magic)+1])
	n := int(binary.BigEndian.Uint32(data[len(magic)+2 : headerSize]))
	if headerSize+n > len(data) {
		return nil, fmt.Errorf("truncated bundle: manifest length %d exceeds file", n)
	}

	b := &Bundle{Compression: c}
	if err := decMode.Unmarshal(data[headerSize:headerSize+n], &b.Manifest); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	payload, err := decompress(data[headerSize+n:], c, b.Manifest.PayloadSize)
	if err != nil {
		return nil, err
	}
	b.payload = payload

	for _, e := range b.Manifest.Entries {
		if e.Offset < 0 || e.Size < 0 || e.Offset+e.Size > len(payload) {
			return nil, fmt.Errorf("entry %s: range out of bounds", e.Path)
		}
		if got := HashAsset(payload[e.Offset : e.Offset+e.Size]); got != e.Hash {
			return nil, fmt.Errorf("entry %s: content hash mismatch", e.Path)
		}
	}
	return b, nil
}

// Asset returns the content of one entry.
func (b *Bundle) Asset(path descriptor.AssetPath) ([]byte, bool) {
	for _, e := range b.Manifest.Entries {
		if e.Path == path {
			return b.payload[e.Offset : e.Offset+e.Size], true
		}
	}
	return nil, false
}

// Package codec converts typed values to and from their serialized byte form.
//
// A Codec is format specific: the Format tag doubles as the file extension
// of a persisted snapshot. Decoding never succeeds silently on malformed
// input; failures are reported as snaperr.CodeDecode errors so the workflow
// can tell a corrupt reference apart from a mismatch.
//
// Available codecs:
//   - Text: UTF-8 strings ("txt")
//   - Bytes: raw binary data ("bin")
//   - PNG: image.Image values ("png")
//   - JSON: canonical, key-sorted, indented JSON ("json")
//   - YAML: yaml.v3 documents ("yaml")
//   - CUE: CUE data literals ("cue")
//   - MsgPack: MessagePack with sorted map keys ("msgpack")
package codec

// Codec converts values of type T to bytes and back.
type Codec[T any] interface {
	// Format returns the format tag, used as the path extension.
	Format() string

	// Encode converts a value to its serialized form.
	Encode(v T) ([]byte, error)

	// Decode converts a serialized form back to a value.
	// The round trip may be lossy.
	Decode(data []byte) (T, error)
}

// Format tags for the built-in codecs.
const (
	FormatText    = "txt"
	FormatBytes   = "bin"
	FormatPNG     = "png"
	FormatJSON    = "json"
	FormatYAML    = "yaml"
	FormatCUE     = "cue"
	FormatMsgPack = "msgpack"
)

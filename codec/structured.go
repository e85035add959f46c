package codec

import (
	"bytes"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/format"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/roach88/snapcheck/snaperr"
)

// YAML encodes values as a single YAML document with two-space indentation.
// Map keys are emitted in sorted order by yaml.v3; struct fields keep their
// declaration order.
type YAML[T any] struct{}

// Format implements Codec.
func (YAML[T]) Format() string { return FormatYAML }

// Encode implements Codec.
func (YAML[T]) Encode(v T) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, snaperr.Unrenderable("value is not YAML encodable", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close yaml encoder: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode implements Codec.
func (YAML[T]) Decode(data []byte) (T, error) {
	var v T
	if err := yaml.Unmarshal(data, &v); err != nil {
		return v, snaperr.Decode(FormatYAML, err)
	}
	return v, nil
}

// CUE encodes values as concrete CUE data, using the CUE SDK's Go API.
// Struct fields follow json tags, as with encoding/json.
type CUE[T any] struct{}

// Format implements Codec.
func (CUE[T]) Format() string { return FormatCUE }

// Encode implements Codec.
func (CUE[T]) Encode(v T) ([]byte, error) {
	ctx := cuecontext.New()
	val := ctx.Encode(v)
	if err := val.Err(); err != nil {
		return nil, snaperr.Unrenderable("value is not CUE encodable", err)
	}

	out, err := format.Node(val.Syntax(cue.Final(), cue.Concrete(true)))
	if err != nil {
		return nil, fmt.Errorf("format cue: %w", err)
	}
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out, nil
}

// Decode implements Codec.
func (CUE[T]) Decode(data []byte) (T, error) {
	var v T
	ctx := cuecontext.New()
	val := ctx.CompileBytes(data)
	if err := val.Err(); err != nil {
		return v, snaperr.Decode(FormatCUE, err)
	}
	if err := val.Decode(&v); err != nil {
		return v, snaperr.Decode(FormatCUE, err)
	}
	return v, nil
}

// MsgPack encodes values as MessagePack. Map keys are sorted so equal maps
// always produce equal bytes.
type MsgPack[T any] struct{}

// Format implements Codec.
func (MsgPack[T]) Format() string { return FormatMsgPack }

// Encode implements Codec.
func (MsgPack[T]) Encode(v T) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, snaperr.Unrenderable("value is not MessagePack encodable", err)
	}
	return buf.Bytes(), nil
}

// Decode implements Codec.
func (MsgPack[T]) Decode(data []byte) (T, error) {
	var v T
	if err := msgpack.Unmarshal(data, &v); err != nil {
		return v, snaperr.Decode(FormatMsgPack, err)
	}
	return v, nil
}

// DecodeMsgPackTree decodes MessagePack into a generic tree of maps, slices
// and scalars, for rendering human-readable diffs of binary payloads.
func DecodeMsgPackTree(data []byte) (any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	v, err := dec.DecodeInterface()
	if err != nil {
		return nil, snaperr.Decode(FormatMsgPack, err)
	}
	return v, nil
}

package strategy

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"image"

	"github.com/davecgh/go-spew/spew"

	"github.com/roach88/snapcheck/async"
	"github.com/roach88/snapcheck/codec"
	"github.com/roach88/snapcheck/diffing"
	"github.com/roach88/snapcheck/dump"
)

// spewConfig prints values with deterministic map order and no addresses.
var spewConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
	SpewKeys:                true,
}

// Lines snapshots text and compares it line by line.
func Lines() Strategy[string, string] {
	return Simply(codec.FormatText, diffing.Lines())
}

// Data snapshots raw bytes and compares them exactly.
func Data() Strategy[[]byte, []byte] {
	return Simply(codec.FormatBytes, diffing.Bytes())
}

// Image snapshots decoded images, stored as PNG.
func Image(opts diffing.ImageOptions) Strategy[image.Image, image.Image] {
	return Simply(codec.FormatPNG, diffing.Image(opts))
}

// PNG snapshots already-encoded PNG data.
func PNG(opts diffing.ImageOptions) Strategy[[]byte, []byte] {
	return Simply(codec.FormatPNG, diffing.PNG(opts))
}

// Description snapshots the fmt.Sprint text of a value, with addresses
// removed.
func Description[V any]() Strategy[V, string] {
	return Pullback(Lines(), func(v V) string {
		return dump.PurgePointers(fmt.Sprint(v))
	})
}

// Dump snapshots the structural dump tree of a value.
func Dump[V any]() Strategy[V, string] {
	return Pullback(Lines(), func(v V) string {
		return dump.String(v)
	})
}

// Spew snapshots the go-spew rendering of a value: sorted map keys, no
// pointer addresses and no slice capacities.
func Spew[V any]() Strategy[V, string] {
	return Pullback(Lines(), func(v V) string {
		return spewConfig.Sdump(v)
	})
}

// JSON snapshots canonical JSON: sorted keys, two-space indent, no HTML
// escaping.
func JSON[V any]() Strategy[V, string] {
	return encoded[V](codec.JSON[V]{})
}

// YAML snapshots a YAML document.
func YAML[V any]() Strategy[V, string] {
	return encoded[V](codec.YAML[V]{})
}

// CUE snapshots concrete CUE data.
func CUE[V any]() Strategy[V, string] {
	return encoded[V](codec.CUE[V]{})
}

// encoded snapshots the text produced by a codec, compared line by line.
func encoded[V any](c codec.Codec[V]) Strategy[V, string] {
	return TryPullback(Lines().WithPathExtension(c.Format()), func(v V) (string, error) {
		data, err := c.Encode(v)
		if err != nil {
			return "", err
		}
		if len(data) > 0 && data[len(data)-1] != '\n' {
			data = append(data, '\n')
		}
		return string(data), nil
	})
}

// MsgPack snapshots MessagePack bytes. Mismatches are explained as a line
// diff of the decoded trees. Stored bytes that are not MessagePack fail to
// load.
func MsgPack[V any]() Strategy[V, []byte] {
	c := codec.MsgPack[V]{}
	raw := diffing.Bytes()
	d := diffing.Diffing[[]byte]{
		ToData: raw.ToData,
		FromData: func(data []byte) ([]byte, error) {
			if _, err := codec.DecodeMsgPackTree(data); err != nil {
				return nil, err
			}
			return data, nil
		},
		Diff: func(reference, actual []byte) *diffing.Mismatch {
			if bytes.Equal(reference, actual) {
				return nil
			}
			ref, err := codec.DecodeMsgPackTree(reference)
			if err != nil {
				return raw.Diff(reference, actual)
			}
			act, err := codec.DecodeMsgPackTree(actual)
			if err != nil {
				return raw.Diff(reference, actual)
			}
			if m := diffing.Lines().Diff(dump.String(ref), dump.String(act)); m != nil {
				return m
			}
			// Same tree, different encoding.
			return raw.Diff(reference, actual)
		},
	}
	return TryPullback(Simply(codec.FormatMsgPack, d), c.Encode)
}

// Func snapshots a function by applying it to each input and recording an
// input,output CSV table.
func Func[A, B any](inputs []A) Strategy[func(A) B, string] {
	return TryPullback(Lines().WithPathExtension("csv"), func(f func(A) B) (string, error) {
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write([]string{"input", "output"}); err != nil {
			return "", err
		}
		for _, in := range inputs {
			row := []string{
				dump.PurgePointers(fmt.Sprint(in)),
				dump.PurgePointers(fmt.Sprint(f(in))),
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
		w.Flush()
		return buf.String(), w.Error()
	})
}

// Deferred snapshots the value of a task, for values that are only known
// after some asynchronous work.
func Deferred[V, F any](s Strategy[V, F]) Strategy[async.Task[V], F] {
	return AsyncPullback(s, func(t async.Task[V]) async.Task[V] { return t })
}

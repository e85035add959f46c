package strategy

import (
	"context"
	"errors"
	"image"
	"image/color"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/snapcheck/async"
	"github.com/roach88/snapcheck/codec"
	"github.com/roach88/snapcheck/diffing"
	"github.com/roach88/snapcheck/snaperr"
)

type user struct {
	Name string `json:"name" yaml:"name" msgpack:"name"`
	ID   int    `json:"id" yaml:"id" msgpack:"id"`
}

func snap[V, F any](t *testing.T, s Strategy[V, F], v V) F {
	t.Helper()
	f, err := s.Snapshot(v).Await(context.Background(), time.Second)
	require.NoError(t, err)
	return f
}

// =============================================================================
// Combinators
// =============================================================================

func TestSimply_Identity(t *testing.T) {
	assert.Equal(t, "hello", snap(t, Lines(), "hello"))
	assert.Equal(t, codec.FormatText, Lines().PathExtension)
}

func TestPullback_Identity(t *testing.T) {
	s := Lines()
	same := Pullback(s, func(v string) string { return v })

	for _, v := range []string{"", "a", "a\nb"} {
		assert.Equal(t, snap(t, s, v), snap(t, same, v))
	}
	assert.Equal(t, s.PathExtension, same.PathExtension)
}

func TestPullback_Composes(t *testing.T) {
	lengths := Pullback(Lines(), func(n int) string { return strings.Repeat("x", n) })
	nested := Pullback(lengths, func(s []string) int { return len(s) })
	assert.Equal(t, "xxx", snap(t, nested, []string{"a", "b", "c"}))
}

func TestTryPullback_FailureIsUnrenderable(t *testing.T) {
	s := TryPullback(Lines(), func(int) (string, error) { return "", errors.New("nope") })
	_, err := s.Snapshot(1).Await(context.Background(), time.Second)
	require.Error(t, err)
	assert.True(t, snaperr.IsUnrenderable(err))
}

func TestTryPullback_KeepsExistingCode(t *testing.T) {
	s := TryPullback(Lines(), func(int) (string, error) { return "", snaperr.Decode("json", errors.New("bad")) })
	_, err := s.Snapshot(1).Await(context.Background(), time.Second)
	assert.True(t, snaperr.IsDecode(err))
}

func TestAsyncPullback(t *testing.T) {
	s := AsyncPullback(Lines(), func(n int) async.Task[string] {
		return async.Callback(func(p *async.Promise[string]) {
			go func() { _ = p.Resolve(strings.Repeat("y", n)) }()
		})
	})
	assert.Equal(t, "yy", snap(t, s, 2))
}

func TestAsyncPullback_NeverResolving(t *testing.T) {
	s := AsyncPullback(Lines(), func(int) async.Task[string] {
		return async.Callback(func(*async.Promise[string]) {})
	})
	_, err := s.Snapshot(1).Await(context.Background(), 20*time.Millisecond)
	assert.True(t, snaperr.IsTimeout(err))
}

func TestMap_SerializedSide(t *testing.T) {
	s := Map(Lines(), func(s string) []byte { return []byte(strings.ToUpper(s)) }, diffing.Bytes())
	assert.Equal(t, []byte("ABC"), snap(t, s, "abc"))
	assert.Equal(t, codec.FormatText, s.PathExtension)
	assert.Equal(t, "bin", s.WithPathExtension("bin").PathExtension)
}

func TestBuiltins_Reflexive(t *testing.T) {
	u := user{Name: "Blob", ID: 1}

	check := func(name string, f string, d diffing.Diffing[string]) {
		t.Run(name, func(t *testing.T) {
			assert.Nil(t, d.Diff(f, f))
			data, err := d.ToData(f)
			require.NoError(t, err)
			back, err := d.FromData(data)
			require.NoError(t, err)
			assert.Nil(t, d.Diff(f, back))
		})
	}
	check("dump", snap(t, Dump[user](), u), Dump[user]().Diffing)
	check("spew", snap(t, Spew[user](), u), Spew[user]().Diffing)
	check("json", snap(t, JSON[user](), u), JSON[user]().Diffing)
	check("yaml", snap(t, YAML[user](), u), YAML[user]().Diffing)
	check("cue", snap(t, CUE[user](), u), CUE[user]().Diffing)
	check("description", snap(t, Description[user](), u), Description[user]().Diffing)
}

// =============================================================================
// Built-ins
// =============================================================================

func TestJSON_Output(t *testing.T) {
	s := JSON[user]()
	assert.Equal(t, "json", s.PathExtension)
	assert.Equal(t, "{\n  \"id\": 1,\n  \"name\": \"Blob\"\n}\n", snap(t, s, user{Name: "Blob", ID: 1}))
}

func TestDump_Output(t *testing.T) {
	out := snap(t, Dump[[]int](), []int{1, 2})
	assert.Equal(t, "▿ 2 elements\n  - 1\n  - 2\n", out)
}

func TestSpew_NoAddresses(t *testing.T) {
	out := snap(t, Spew[*user](), &user{Name: "Blob"})
	assert.NotContains(t, out, "0x")
	assert.Contains(t, out, `Name: (string) (len=4) "Blob"`)
}

func TestDescription_PurgesAddresses(t *testing.T) {
	out := snap(t, Description[*int](), new(int))
	assert.NotContains(t, out, "0x")
}

func TestMsgPack_ExplainsDifferenceAsTree(t *testing.T) {
	s := MsgPack[user]()
	a := snap(t, s, user{Name: "Blob", ID: 1})
	b := snap(t, s, user{Name: "Blob", ID: 2})

	assert.Nil(t, s.Diffing.Diff(a, a))
	m := s.Diffing.Diff(a, b)
	require.NotNil(t, m)
	assert.Contains(t, m.Message, "-    - value: 1")
	assert.Contains(t, m.Message, "+    - value: 2")
}

func TestMsgPack_FromDataRejectsCorruptBytes(t *testing.T) {
	s := MsgPack[user]()
	_, err := s.Diffing.FromData([]byte{0xc1})
	require.Error(t, err)
	assert.True(t, snaperr.IsDecode(err))

	data := snap(t, s, user{Name: "Blob", ID: 1})
	back, err := s.Diffing.FromData(data)
	require.NoError(t, err)
	assert.Equal(t, data, back)
}

func TestImage_Strategy(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.Black)
	s := Image(diffing.ImageOptions{})
	assert.Equal(t, "png", s.PathExtension)
	assert.Nil(t, s.Diffing.Diff(img, snap(t, s, image.Image(img))))
}

func TestFunc_Table(t *testing.T) {
	s := Func[int, bool]([]int{1, 2, 3})
	out := snap(t, s, func(n int) bool { return n%2 == 0 })
	assert.Equal(t, "input,output\n1,false\n2,true\n3,false\n", out)
	assert.Equal(t, "csv", s.PathExtension)
}

func TestDeferred(t *testing.T) {
	s := Deferred(Lines())
	assert.Equal(t, "later", snap(t, s, async.Resolved("later")))
}

// =============================================================================
// HTTP requests
// =============================================================================

func newRequest(t *testing.T, method, target, body string) *http.Request {
	t.Helper()
	var req *http.Request
	var err error
	if body == "" {
		req, err = http.NewRequest(method, target, nil)
	} else {
		req, err = http.NewRequest(method, target, strings.NewReader(body))
	}
	require.NoError(t, err)
	return req
}

func TestRawRequest(t *testing.T) {
	req := newRequest(t, http.MethodPost, "http://localhost:8080/account?z=1&a=2", "email=blob%40pointfree.co&name=Blob")
	req.Header.Set("Cookie", `pf_session={"userId":"1"}`)

	expected := "POST http://localhost:8080/account?a=2&z=1\n" +
		"Cookie: pf_session={\"userId\":\"1\"}\n" +
		"\n" +
		"email=blob%40pointfree.co&name=Blob"
	assert.Equal(t, expected, snap(t, RawRequest(false), req))

	// The body is restored for a second read.
	assert.Equal(t, expected, snap(t, RawRequest(false), req))
}

func TestRawRequest_PrettyJSON(t *testing.T) {
	req := newRequest(t, http.MethodPut, "http://localhost/items", `{"b":1,"a":[true]}`)
	out := snap(t, RawRequest(true), req)
	assert.Equal(t, "PUT http://localhost/items\n\n{\n  \"a\": [\n    true\n  ],\n  \"b\": 1\n}", out)
}

func TestCurlRequest(t *testing.T) {
	req := newRequest(t, http.MethodPost, "https://www.pointfree.co/subscribe", "pricing[billing]=monthly")
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Cookie", "a=1")

	expected := "curl \\\n" +
		"\t--request POST \\\n" +
		"\t--header \"Accept: text/html\" \\\n" +
		"\t--data \"pricing[billing]=monthly\" \\\n" +
		"\t--cookie \"a=1\" \\\n" +
		"\t\"https://www.pointfree.co/subscribe\""
	assert.Equal(t, expected, snap(t, CurlRequest(), req))
}

func TestCurlRequest_GetAndHead(t *testing.T) {
	assert.Equal(t, "curl \\\n\t\"http://x.test/\"", snap(t, CurlRequest(), newRequest(t, http.MethodGet, "http://x.test/", "")))
	assert.Contains(t, snap(t, CurlRequest(), newRequest(t, http.MethodHead, "http://x.test/", "")), "--head")
}

// =============================================================================
// Registry
// =============================================================================

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	Register(r, JSON[user]())

	s, ok := Lookup[user, string](r, "json")
	require.True(t, ok)
	assert.Equal(t, "json", s.PathExtension)

	_, ok = Lookup[user, []byte](r, "json")
	assert.False(t, ok, "serialized type must match")

	_, ok = Lookup[int, string](r, "json")
	assert.False(t, ok)

	assert.Equal(t, []string{"json"}, Formats[user](r))
}

func TestRegistry_ForFallsBackToDump(t *testing.T) {
	r := NewRegistry()
	s, err := For[[]int](r, "txt")
	require.NoError(t, err)
	assert.Equal(t, "▿ 1 element\n  - 7\n", snap(t, s, []int{7}))

	_, err = For[[]int](r, "yaml")
	assert.Error(t, err)
}

func TestDefaultRegistry(t *testing.T) {
	_, ok := Lookup[string, string](Default, "txt")
	assert.True(t, ok)
	_, ok = Lookup[[]byte, []byte](Default, "bin")
	assert.True(t, ok)
	_, ok = Lookup[image.Image, image.Image](Default, "png")
	assert.True(t, ok)
}

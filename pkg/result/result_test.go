package result

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestMapLaws(t *testing.T) {
	double := func(x int) int { return x * 2 }

	t.Run("Ok map unwrap equals fn of value", func(t *testing.T) {
		got, err := Map(Ok(21), double).Unwrap()
		require.NoError(t, err)
		assert.Equal(t, double(21), got)
	})

	t.Run("Err map stays the same Err", func(t *testing.T) {
		called := false
		r := Map(Err[int](errBoom), func(x int) string {
			called = true
			return strconv.Itoa(x)
		})
		assert.False(t, called, "fn must not run for Err")
		assert.True(t, r.IsNone())
		assert.ErrorIs(t, r.Err(), errBoom)
	})
}

func TestUnwrapOr(t *testing.T) {
	assert.Equal(t, 1, Ok(1).UnwrapOr(2))
	assert.Equal(t, 2, Err[int](errBoom).UnwrapOr(2))
}

func TestMapOr(t *testing.T) {
	assert.Equal(t, "3", MapOr(Ok(3), "none", strconv.Itoa))
	assert.Equal(t, "none", MapOr(Err[int](errBoom), "none", strconv.Itoa))
}

func TestSomeNoneAreComplements(t *testing.T) {
	cases := []Result[string]{
		Ok("x"),
		Ok(""),
		Err[string](errBoom),
		Err[string](nil),
		{},
		From("v", nil),
		From("v", errBoom),
	}
	for i, r := range cases {
		assert.NotEqual(t, r.IsSome(), r.IsNone(), "case %d", i)
	}
}

func TestErrNilIsStillErr(t *testing.T) {
	r := Err[int](nil)
	assert.True(t, r.IsNone())
	_, err := r.Unwrap()
	assert.ErrorIs(t, err, ErrNilError)

	var zero Result[int]
	assert.True(t, zero.IsNone())
	assert.ErrorIs(t, zero.Err(), ErrNilError)
}

func TestOkPayloadThatIsAnError(t *testing.T) {
	r := Ok[error](errBoom)
	require.True(t, r.IsSome())
	v, err := r.Unwrap()
	require.NoError(t, err)
	assert.Same(t, errBoom, v)
}

func TestFrom(t *testing.T) {
	assert.True(t, From(1, nil).IsSome())
	r := From(1, errBoom)
	assert.True(t, r.IsNone())
	assert.ErrorIs(t, r.Err(), errBoom)
}

func TestMust(t *testing.T) {
	assert.Equal(t, 5, Ok(5).Must())
	assert.PanicsWithError(t, "boom", func() { Err[int](errBoom).Must() })
}

func TestAndThen(t *testing.T) {
	parse := func(s string) Result[int] {
		n, err := strconv.Atoi(s)
		return From(n, err)
	}

	got, err := AndThen(Ok("12"), parse).Unwrap()
	require.NoError(t, err)
	assert.Equal(t, 12, got)

	assert.True(t, AndThen(Ok("x"), parse).IsNone())
	assert.ErrorIs(t, AndThen(Err[string](errBoom), parse).Err(), errBoom)
}

func TestJSONWire(t *testing.T) {
	t.Run("ok round trip", func(t *testing.T) {
		data, err := json.Marshal(Ok("rendered"))
		require.NoError(t, err)
		assert.JSONEq(t, `{"ok":"rendered"}`, string(data))

		var r Result[string]
		require.NoError(t, json.Unmarshal(data, &r))
		assert.Equal(t, "rendered", r.Must())
	})

	t.Run("empty ok is not an error", func(t *testing.T) {
		var r Result[string]
		require.NoError(t, json.Unmarshal([]byte(`{"ok":""}`), &r))
		assert.True(t, r.IsSome())
		assert.Equal(t, "", r.Must())
	})

	t.Run("err decodes to RemoteError", func(t *testing.T) {
		data, err := json.Marshal(Err[string](errBoom))
		require.NoError(t, err)
		assert.JSONEq(t, `{"err":"boom"}`, string(data))

		var r Result[string]
		require.NoError(t, json.Unmarshal(data, &r))
		var remote *RemoteError
		require.ErrorAs(t, r.Err(), &remote)
		assert.Equal(t, "boom", remote.Message)
	})

	t.Run("both or neither member is malformed", func(t *testing.T) {
		for _, in := range []string{`{}`, `{"ok":"a","err":"b"}`} {
			var r Result[string]
			assert.ErrorIs(t, json.Unmarshal([]byte(in), &r), ErrMalformed, in)
		}
	})
}

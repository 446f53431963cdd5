package ir

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectSortedKeys(t *testing.T) {
	obj := Object{"a": Int(1), "A": Int(2), "aa": Int(3), "Aa": Int(5), "AA": Int(6)}
	assert.Equal(t, []string{"A", "AA", "Aa", "a", "aa"}, obj.SortedKeys())
}

func TestParseValueRejectsFloatsAndNull(t *testing.T) {
	_, err := ParseValue([]byte(`{"a":1.5}`))
	assert.Error(t, err)

	_, err = ParseValue([]byte(`{"a":null}`))
	assert.Error(t, err)

	v, err := ParseValue([]byte(`{"a":[1,"x",true]}`))
	require.NoError(t, err)
	assert.Equal(t, Object{"a": Array{Int(1), String("x"), Bool(true)}}, v)
}

func TestParseValueKeepsLargeIntegers(t *testing.T) {
	v, err := ParseValue([]byte(`9007199254740993`))
	require.NoError(t, err)
	assert.Equal(t, Int(9007199254740993), v)
}

func TestObjectJSONRoundTrip(t *testing.T) {
	in := Object{"coin": Int(100), "tags": Array{String("x")}, "gone": Null{}}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Equal(t, `{"coin":100,"gone":null,"tags":["x"]}`, string(data))

	var out Object
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestUint(t *testing.T) {
	v, err := Uint(42)
	require.NoError(t, err)
	assert.Equal(t, Int(42), v)

	_, err = Uint(math.MaxUint64)
	assert.Error(t, err)
}

func TestObjectCloneIsDeep(t *testing.T) {
	orig := Object{"inner": Object{"n": Int(1)}}
	cp := orig.Clone()
	cp["inner"].(Object)["n"] = Int(2)

	n, _ := orig["inner"].(Object).Int64("n")
	assert.Equal(t, int64(1), n)
}

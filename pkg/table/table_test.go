package table_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/smog/pkg/table"
	"github.com/kristofer/smog/pkg/value"
)

func key(chars string) *value.ObjString {
	return &value.ObjString{Chars: chars, Hash: value.HashString(chars)}
}

func TestSetAndGet(t *testing.T) {
	tbl := table.New()
	k := key("answer")
	assert.True(t, tbl.Set(k, value.NumberValue(42)))

	v, ok := tbl.Get(k)
	require.True(t, ok)
	assert.Equal(t, float64(42), v.Num)
}

func TestSetOverwriteReturnsFalse(t *testing.T) {
	tbl := table.New()
	k := key("x")
	assert.True(t, tbl.Set(k, value.NumberValue(1)))
	assert.False(t, tbl.Set(k, value.NumberValue(2)))

	v, ok := tbl.Get(k)
	require.True(t, ok)
	assert.Equal(t, float64(2), v.Num)
}

func TestGetMissingKey(t *testing.T) {
	tbl := table.New()
	_, ok := tbl.Get(key("nope"))
	assert.False(t, ok)
}

func TestDeleteThenReinsertPreservesValue(t *testing.T) {
	tbl := table.New()
	k := key("tombstone")
	tbl.Set(k, value.NumberValue(1))
	assert.True(t, tbl.Delete(k))

	_, ok := tbl.Get(k)
	assert.False(t, ok)

	tbl.Set(k, value.NumberValue(7))
	v, ok := tbl.Get(k)
	require.True(t, ok)
	assert.Equal(t, float64(7), v.Num)
}

func TestDeleteMissingKeyReturnsFalse(t *testing.T) {
	tbl := table.New()
	assert.False(t, tbl.Delete(key("ghost")))
}

func TestGrowthPreservesAllEntries(t *testing.T) {
	tbl := table.New()
	keys := make([]*value.ObjString, 0, 64)
	for i := 0; i < 64; i++ {
		k := key(string(rune('a' + i%26)) + string(rune('0'+i%10)) + string(rune(i)))
		keys = append(keys, k)
		tbl.Set(k, value.NumberValue(float64(i)))
	}
	for i, k := range keys {
		v, ok := tbl.Get(k)
		require.Truef(t, ok, "key %d missing after growth", i)
		assert.Equal(t, float64(i), v.Num)
	}
	assert.Equal(t, 64, tbl.Len())
}

func TestFindStringMatchesByContentNotPointer(t *testing.T) {
	tbl := table.New()
	original := key("hello")
	tbl.Set(original, value.NilValue)

	found := tbl.FindString("hello", value.HashString("hello"))
	assert.Same(t, original, found)

	assert.Nil(t, tbl.FindString("missing", value.HashString("missing")))
}

func TestEachVisitsEveryLiveEntry(t *testing.T) {
	tbl := table.New()
	want := map[string]float64{"a": 1, "b": 2, "c": 3}
	keys := map[string]*value.ObjString{}
	for name, n := range want {
		keys[name] = key(name)
		tbl.Set(keys[name], value.NumberValue(n))
	}
	tbl.Delete(keys["b"])

	got := map[string]float64{}
	tbl.Each(func(k *value.ObjString, v value.Value) {
		got[k.Chars] = v.Num
	})
	assert.Equal(t, map[string]float64{"a": 1, "c": 3}, got)
}

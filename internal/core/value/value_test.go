package value

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counter struct{ n *int }

func (c counter) Clone() any {
	n := *c.n
	return counter{n: &n}
}

func TestCloneIsDeep(t *testing.T) {
	n := 1
	src := map[string]any{
		"player": map[string]any{
			"pos":   Vector3{X: 1, Y: 2, Z: 3},
			"tags":  []any{"a", map[string]any{"b": 1}},
			"score": counter{n: &n},
		},
	}

	dst := Clone(src).(map[string]any)
	require.True(t, Equal(src, dst))

	dst["player"].(map[string]any)["tags"].([]any)[1].(map[string]any)["b"] = 2
	*dst["player"].(map[string]any)["score"].(counter).n = 9

	assert.Equal(t, 1, src["player"].(map[string]any)["tags"].([]any)[1].(map[string]any)["b"])
	assert.Equal(t, 1, n)
}

func TestCloneTypedContainers(t *testing.T) {
	xs := []float64{1, 2, 3}
	m := map[string]float64{"x": 1}
	nested := map[string][]string{"tags": {"a", "b"}}
	arr := [2][]int{{1}, {2}}

	cx := Clone(xs).([]float64)
	cm := Clone(m).(map[string]float64)
	cn := Clone(nested).(map[string][]string)
	ca := Clone(arr).([2][]int)

	xs[0] = 99
	m["x"] = 5
	nested["tags"][0] = "z"
	arr[0][0] = 7

	assert.Equal(t, []float64{1, 2, 3}, cx)
	assert.Equal(t, map[string]float64{"x": 1}, cm)
	assert.Equal(t, []string{"a", "b"}, cn["tags"])
	assert.Equal(t, 1, ca[0][0])

	var nilSlice []int
	assert.Nil(t, Clone(nilSlice))
	assert.Equal(t, "plain", Clone("plain"))
}

func TestClonePointerKeepsPointerType(t *testing.T) {
	v := &Vector3{X: 1, Y: 2, Z: 3}
	c, ok := Clone(v).(*Vector3)
	require.True(t, ok, "pointer stays a pointer")
	assert.NotSame(t, v, c)
	v.X = 9
	assert.Equal(t, 1.0, c.X)

	inner := []any{map[string]any{"n": 1}}
	p := &inner
	cp := Clone(p).(*[]any)
	(*p)[0].(map[string]any)["n"] = 2
	assert.Equal(t, 1, (*cp)[0].(map[string]any)["n"])

	var nilVec *Vector3
	assert.Nil(t, Clone(nilVec).(*Vector3))
}

func TestEqualNormalizesNumbers(t *testing.T) {
	assert.True(t, Equal(3, 3.0))
	assert.True(t, Equal(map[string]any{"a": int64(2)}, map[string]any{"a": 2.0}))
	assert.False(t, Equal(map[string]any{"a": 1}, map[string]any{"a": 1, "b": 2}))
	assert.False(t, Equal("1", 1))
	assert.True(t, Equal(nil, nil))
	assert.True(t, Equal(Vector3{1, 2, 3}, Vector3{1, 2, 3}))
}

func TestVectorWireShape(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"p": Vector3{X: 1, Y: 2, Z: 3},
		"q": Quaternion{W: 1},
		"e": Euler{X: 0.5, Order: "XYZ"},
	})
	require.NoError(t, err)

	var back map[string]any
	require.NoError(t, json.Unmarshal(raw, &back))

	assert.Equal(t, map[string]any{"x": 1.0, "y": 2.0, "z": 3.0, "_type": "Vector3"}, back["p"])
	assert.Equal(t, TypeQuaternion, TypeTag(back["q"]))
	assert.Equal(t, 1.0, back["q"].(map[string]any)["w"])
	assert.Equal(t, "XYZ", back["e"].(map[string]any)["order"])
	assert.Equal(t, "", TypeTag("plain"))
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
	}
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int{3, 4, 5}, r.Items())

	v, ok := r.PopBack()
	require.True(t, ok)
	assert.Equal(t, 5, v)
	assert.Equal(t, []int{3, 4}, r.Items())

	r.Push(6)
	r.Push(7)
	assert.Equal(t, []int{4, 6, 7}, r.Items())

	assert.Equal(t, []int{4, 6, 7}, r.Drain())
	assert.Equal(t, 0, r.Len())
	_, ok = r.PopBack()
	assert.False(t, ok)
}

func TestRingMinimumCapacity(t *testing.T) {
	r := NewRing[string](0)
	assert.Equal(t, 1, r.Cap())
	assert.False(t, r.Push("a"))
	assert.True(t, r.Push("b"))
	assert.Equal(t, []string{"b"}, r.Items())
}

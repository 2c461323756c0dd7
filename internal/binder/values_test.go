package binder

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValuesStore(t *testing.T) {
	v := newValues()
	v.declare("b")
	v.declare("a")
	v.declare("b")

	assert.Equal(t, 2, v.Len())
	assert.Equal(t, []string{"b", "a"}, v.Names())

	val, ok := v.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "", val)

	v.set("a", "1")
	assert.Equal(t, "1", v.Lookup("a"))
	assert.Equal(t, "", v.Lookup("missing"))

	assert.Equal(t, []Pair{{"b", ""}, {"a", "1"}}, v.Pairs())
	assert.Equal(t, []Pair{{"a", "1"}}, v.Assigned())
}

func TestDefaultFormatter(t *testing.T) {
	testCases := []struct {
		name     string
		in       any
		expected string
	}{
		{"nil", nil, ""},
		{"string", "s", "s"},
		{"bytes", []byte("b"), "b"},
		{"stringer", 1500 * time.Millisecond, "1.5s"},
		{"bool", false, "false"},
		{"int", -3, "-3"},
		{"int64", int64(1 << 40), "1099511627776"},
		{"uint8", uint8(7), "7"},
		{"float64", 0.25, "0.25"},
		{"float32", float32(1.5), "1.5"},
		{"error", errors.New("bad"), "bad"},
		{"fallback", []int{1, 2}, "[1 2]"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DefaultFormatter(tc.in))
		})
	}
}

package binder

import (
	"fmt"
	"strconv"
)

// Values is the value store of a handle: one slot per discovered
// placeholder, kept in first-seen order. Event callbacks receive the live
// store, so they observe later updates too.
type Values struct {
	order    []string
	data     map[string]string
	assigned map[string]bool
}

func newValues() *Values {
	return &Values{data: make(map[string]string), assigned: make(map[string]bool)}
}

// declare creates the slot for name with an empty value if it is new.
func (v *Values) declare(name string) {
	if _, ok := v.data[name]; ok {
		return
	}
	v.order = append(v.order, name)
	v.data[name] = ""
}

func (v *Values) set(name, value string) {
	v.data[name] = value
	v.assigned[name] = true
}

// Get returns the current value of name.
func (v *Values) Get(name string) (string, bool) {
	val, ok := v.data[name]
	return val, ok
}

// Lookup returns the current value of name, or "" if it has no slot.
func (v *Values) Lookup(name string) string {
	return v.data[name]
}

// Names returns the placeholder names in first-seen order.
func (v *Values) Names() []string {
	return append([]string(nil), v.order...)
}

// Len returns the number of slots.
func (v *Values) Len() int {
	return len(v.order)
}

// Pair is one name/value assignment.
type Pair struct {
	Name  string
	Value string
}

// Pairs returns the current contents in first-seen order.
func (v *Values) Pairs() []Pair {
	out := make([]Pair, 0, len(v.order))
	for _, name := range v.order {
		out = append(out, Pair{Name: name, Value: v.data[name]})
	}

	return out
}

// Assigned returns the values that have been set at least once, in
// first-seen order. Slots that were never set are left out.
func (v *Values) Assigned() []Pair {
	out := make([]Pair, 0, len(v.assigned))
	for _, name := range v.order {
		if v.assigned[name] {
			out = append(out, Pair{Name: name, Value: v.data[name]})
		}
	}

	return out
}

// Formatter turns an arbitrary value into placeholder text.
type Formatter func(v any) string

// DefaultFormatter formats strings, byte slices, Stringers, booleans and
// numbers directly and everything else with fmt.Sprint. nil formats as "".
func DefaultFormatter(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case error:
		return x.Error()
	default:
		return fmt.Sprint(v)
	}
}

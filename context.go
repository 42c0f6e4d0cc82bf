package filterlang

import (
	"fmt"
	"net/netip"
)

// ExecutionContext is an insertion-ordered mapping from field name to a
// concrete runtime value, populated by the caller before evaluation. The
// first insertion under a name fixes that name's type for the lifetime of
// the context; inserting a value of a different type under the same name
// is a caller contract violation and panics. Like Scheme, an
// ExecutionContext provides no internal locking: populate it fully before
// any concurrent Execute.
type ExecutionContext struct {
	names  []string
	values map[string]LhsValue
}

// NewExecutionContext returns an empty ExecutionContext.
func NewExecutionContext() *ExecutionContext {
	return &ExecutionContext{values: make(map[string]LhsValue)}
}

// AddUnsigned sets a field to an unsigned integer value.
func (c *ExecutionContext) AddUnsigned(name string, v uint64) {
	c.add(name, UnsignedValue(v))
}

// AddBytes sets a field to a byte-sequence value.
func (c *ExecutionContext) AddBytes(name string, b []byte) {
	c.add(name, BytesValue(b))
}

// AddIP sets a field to an IP address value.
func (c *ExecutionContext) AddIP(name string, addr netip.Addr) {
	c.add(name, IPValue(addr))
}

// AddIPString parses text as an IP address and sets the field. Unparseable
// text is silently ignored; callers needing failure feedback must validate
// the address themselves first.
func (c *ExecutionContext) AddIPString(name, text string) {
	addr, err := netip.ParseAddr(text)
	if err != nil {
		return
	}
	c.add(name, IPValue(addr))
}

// AddBool sets a field to a boolean value.
func (c *ExecutionContext) AddBool(name string, v bool) {
	c.add(name, BoolValue(v))
}

func (c *ExecutionContext) add(name string, v LhsValue) {
	if prev, ok := c.values[name]; ok {
		if prev.Type() != v.Type() {
			panic(fmt.Sprintf("Field %s was previously registered with type %s but now contains %s",
				name, prev.Type(), v.Type()))
		}
	} else {
		c.names = append(c.names, name)
	}
	c.values[name] = v
}

// Fields returns the field names in insertion order.
func (c *ExecutionContext) Fields() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// field looks up a referenced field's current value. A missing field means
// the context was built inconsistently with the scheme the filter was
// parsed against, and panics.
func (c *ExecutionContext) field(name string) LhsValue {
	v, ok := c.values[name]
	if !ok {
		panic(fmt.Sprintf("Could not find previously registered field %s", name))
	}
	return v
}

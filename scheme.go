package filterlang

// Scheme is an insertion-ordered mapping from field name to declared value
// type. A Scheme is built once, before parsing; it provides no internal
// locking, so all AddField calls must happen before any concurrent Parse.
type Scheme struct {
	names []string
	types map[string]Type
}

// NewScheme returns an empty Scheme.
func NewScheme() *Scheme {
	return &Scheme{types: make(map[string]Type)}
}

// AddField declares a field. Re-declaring an existing name overwrites its
// type, last write wins.
func (s *Scheme) AddField(name string, t Type) {
	if _, ok := s.types[name]; !ok {
		s.names = append(s.names, name)
	}
	s.types[name] = t
}

// FieldType returns the declared type of a field.
func (s *Scheme) FieldType(name string) (Type, bool) {
	t, ok := s.types[name]
	return t, ok
}

// Fields returns the field names in declaration order.
func (s *Scheme) Fields() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of declared fields.
func (s *Scheme) Len() int {
	return len(s.names)
}

package vm

// InitAttr is the constructor attribute resolved and invoked when a class
// is called.
const InitAttr = "__init__"

// ---------------------------------------------------------------------------
// Class: a class object with a linearized ancestor order
// ---------------------------------------------------------------------------

// Class carries a name, the ordered base classes, a local attribute
// mapping, and the ancestor linearization (method-resolution order). The
// linearization is computed once, at construction, by C3 merge; only the
// local attribute mapping mutates afterwards, via attribute assignment.
type Class struct {
	Name  string
	Bases []*Class
	Attrs Namespace
	MRO   []*Class
}

// NewClass creates a class and computes its C3 linearization. An
// inheritance graph with no valid merge is a construction-time
// LinearizeError; it is never deferred to lookup.
func NewClass(name string, bases []*Class, attrs Namespace) (*Class, error) {
	if attrs == nil {
		attrs = NewNamespace()
	}
	c := &Class{Name: name, Bases: bases, Attrs: attrs}

	mro, err := linearize(c)
	if err != nil {
		return nil, err
	}
	c.MRO = mro
	return c, nil
}

func (*Class) Type() Type { return TypeClass }

// String implements the Stringer interface.
func (c *Class) String() string {
	return "<class " + c.Name + ">"
}

func (c *Class) entity() string {
	return "type object " + c.Name
}

// ---------------------------------------------------------------------------
// C3 linearization
// ---------------------------------------------------------------------------

// linearize computes the method-resolution order for c: the C3 merge of
// [c], the linearizations of its bases, and the base list itself.
func linearize(c *Class) ([]*Class, error) {
	seqs := make([][]*Class, 0, len(c.Bases)+2)
	seqs = append(seqs, []*Class{c})
	for _, base := range c.Bases {
		mro := make([]*Class, len(base.MRO))
		copy(mro, base.MRO)
		seqs = append(seqs, mro)
	}
	if len(c.Bases) > 0 {
		bases := make([]*Class, len(c.Bases))
		copy(bases, c.Bases)
		seqs = append(seqs, bases)
	}
	return mroMerge(c, seqs)
}

// mroMerge merges candidate sequences into a single order. A class is a
// valid head only when it appears in no sequence's tail; when every head is
// rejected the hierarchy is contradictory.
func mroMerge(c *Class, seqs [][]*Class) ([]*Class, error) {
	var result []*Class
	for {
		nonempty := seqs[:0:0]
		for _, seq := range seqs {
			if len(seq) > 0 {
				nonempty = append(nonempty, seq)
			}
		}
		if len(nonempty) == 0 {
			return result, nil
		}

		var cand *Class
		for _, seq := range nonempty {
			head := seq[0]
			if inTail(head, nonempty) {
				continue
			}
			cand = head
			break
		}
		if cand == nil {
			return nil, &LinearizeError{Class: c.Name}
		}

		result = append(result, cand)
		for i, seq := range seqs {
			if len(seq) > 0 && seq[0] == cand {
				seqs[i] = seq[1:]
			}
		}
	}
}

// inTail reports whether cls appears past the head of any sequence.
func inTail(cls *Class, seqs [][]*Class) bool {
	for _, seq := range seqs {
		for _, other := range seq[1:] {
			if other == cls {
				return true
			}
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Attribute resolution
// ---------------------------------------------------------------------------

// ResolveAttr scans the precomputed linearization in order and returns the
// first ancestor's raw stored value for name, with no descriptor handling.
func (c *Class) ResolveAttr(name string) (Value, error) {
	for _, ancestor := range c.MRO {
		if v, ok := ancestor.Attrs[name]; ok {
			return v, nil
		}
	}
	return nil, &AttributeError{Entity: c.entity(), Name: name}
}

// GetAttribute resolves name along the linearization and applies the "get"
// capability with no bound instance when the result is a descriptor.
func (c *Class) GetAttribute(in *Interp, name string) (Value, error) {
	v, err := c.ResolveAttr(name)
	if err != nil {
		return nil, err
	}
	if g, ok := v.(Getter); ok {
		return g.DescrGet(in, nil, c)
	}
	return v, nil
}

// SetAttr writes directly into the class's local attribute mapping.
func (c *Class) SetAttr(name string, v Value) {
	c.Attrs[name] = v
}

// IsSubclassOf reports whether other appears in c's linearization.
func (c *Class) IsSubclassOf(other *Class) bool {
	for _, ancestor := range c.MRO {
		if ancestor == other {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Instantiation
// ---------------------------------------------------------------------------

// Call makes classes callable: calling a class allocates an instance and
// invokes the resolved constructor attribute.
func (c *Class) Call(in *Interp, args []Value, kwargs Namespace) (Value, error) {
	return NewInstance(in, c, args, kwargs)
}

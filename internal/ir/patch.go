package ir

// Patch is a partial update to a node's computational fields. Each field is
// independently settable; a nil pointer leaves the field unchanged.
//
// ComputedValue follows the same rule: nil means unchanged and Null{} means
// set to null. Contributions replaces the whole map when non-nil; use an
// empty map to clear it.
type Patch struct {
	ValueType     *ValueType    `json:"value_type,omitempty"`
	Selector      *string       `json:"selector,omitempty"`
	Contributions Contributions `json:"contributions,omitempty"`
	ComputedValue Value         `json:"computed_value,omitempty"`
	SyntaxError   *bool         `json:"syntax_error,omitempty"`
	Output        *string       `json:"output,omitempty"`
	Pending       *string       `json:"pending,omitempty"`
	Generation    *int64        `json:"generation,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.ValueType == nil &&
		p.Selector == nil &&
		p.Contributions == nil &&
		p.ComputedValue == nil &&
		p.SyntaxError == nil &&
		p.Output == nil &&
		p.Pending == nil &&
		p.Generation == nil
}

// Merge returns p with every field set in other overriding it.
func (p Patch) Merge(other Patch) Patch {
	if other.ValueType != nil {
		p.ValueType = other.ValueType
	}
	if other.Selector != nil {
		p.Selector = other.Selector
	}
	if other.Contributions != nil {
		p.Contributions = other.Contributions
	}
	if other.ComputedValue != nil {
		p.ComputedValue = other.ComputedValue
	}
	if other.SyntaxError != nil {
		p.SyntaxError = other.SyntaxError
	}
	if other.Output != nil {
		p.Output = other.Output
	}
	if other.Pending != nil {
		p.Pending = other.Pending
	}
	if other.Generation != nil {
		p.Generation = other.Generation
	}
	return p
}

// Apply returns a copy of n with the patch applied. n is not modified.
func (n Node) Apply(p Patch) Node {
	out := n
	if p.ValueType != nil {
		out.ValueType = *p.ValueType
	}
	if p.Selector != nil {
		out.Selector = *p.Selector
	}
	if p.Contributions != nil {
		out.Contributions = p.Contributions.Clone()
	} else {
		out.Contributions = n.Contributions.Clone()
	}
	if p.ComputedValue != nil {
		if IsNull(p.ComputedValue) {
			out.ComputedValue = nil
		} else {
			out.ComputedValue = p.ComputedValue
		}
	}
	if p.SyntaxError != nil {
		out.SyntaxError = *p.SyntaxError
	}
	if p.Output != nil {
		out.Output = *p.Output
	}
	if p.Pending != nil {
		out.Pending = *p.Pending
	}
	if p.Generation != nil {
		out.Generation = *p.Generation
	}
	return out
}

// Ptr returns a pointer to v. It is a convenience for building patches.
func Ptr[T any](v T) *T {
	return &v
}

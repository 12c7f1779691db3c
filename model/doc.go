// Package model defines the values templates operate on.
//
// Every value implements [Value], whose facets tell which capability
// interfaces ([Scalar], [Numeric], [Boolean], [DateValue], [Sequence],
// [Hash], [HashEx], [Enumerable], [Method], [MarkupValue]) it offers. The
// absent value is nil.
//
// Host data enters templates through a [Wrapper]:
//
//	v, err := model.Wrap(map[string]any{"user": "Big Joe", "n": 3})
//
// Built-in Go types are always supported. Other types need an [Adapter]
// registered with [Wrapper.Register] or [Adapt]; wrapping an unknown type
// fails with [ErrUnsupportedType].
package model

// Package transformer maps each supplier's raw warehouse rows onto the
// intermediate column vocabulary defined in package fare.
//
// There is one generic cleaning routine (Cleaner.Clean) driven by a per-
// supplier Profile. Record-level transforms that run after unification live in
// the builtin subpackage and compose through Chain.
package transformer

import "fareetl/pkg/records"

// Transformer is a whole-batch record transform.
type Transformer interface{ Apply([]records.Record) []records.Record }

// Chain is an ordered list of transformers.
type Chain []Transformer

func (c Chain) Apply(in []records.Record) []records.Record {
	out := in
	for _, t := range c {
		out = t.Apply(out)
	}
	return out
}

// Func adapts a plain function to Transformer.
type Func func([]records.Record) []records.Record

func (f Func) Apply(in []records.Record) []records.Record { return f(in) }

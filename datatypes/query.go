// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the wire types of the Prolog query service.
package datatypes

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// QueryRequest is the body of POST /query: one program and one query, both
// request-scoped. Nothing submitted here survives the request.
type QueryRequest struct {
	Program string `json:"program" binding:"required" validate:"required,max=1048576"`
	Query   string `json:"query" binding:"required" validate:"required,max=65536"`
}

// Validate rejects malformed requests before any interpreter work happens.
func (r *QueryRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return errors.New("program and query must be non-empty strings within size limits")
	}
	return nil
}

// QueryResponse is the success envelope: one entry per outcome, in
// backtracking order.
type QueryResponse struct {
	Results []Outcome `json:"results"`
}

// ErrorResponse is the failure envelope. Error carries the taxonomy kind
// (e.g. "load_failed"), Detail the human-readable cause.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// =============================================================================
// Outcomes
// =============================================================================

// Outcome is one entry of the results array: either a solved binding set, or
// a bare truth marker. Ground queries that succeed yield {"result": true};
// queries with no solutions yield {"result": false}. The marker living
// inside the same array as binding objects mirrors the service's original
// wire format, which clients already depend on.
type Outcome struct {
	truth    *bool
	bindings *BindingSet
}

// TruthOutcome returns a {"result": ok} marker outcome.
func TruthOutcome(ok bool) Outcome {
	return Outcome{truth: &ok}
}

// SolutionOutcome returns an outcome carrying one solution's bindings.
func SolutionOutcome(b *BindingSet) Outcome {
	return Outcome{bindings: b}
}

// Truth reports the marker value and whether this outcome is a marker.
func (o Outcome) Truth() (value, ok bool) {
	if o.truth == nil {
		return false, false
	}
	return *o.truth, true
}

// Bindings returns the solution's bindings, or nil for marker outcomes.
func (o Outcome) Bindings() *BindingSet { return o.bindings }

// MarshalJSON renders either the truth marker or the binding object.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.truth != nil {
		return json.Marshal(map[string]bool{"result": *o.truth})
	}
	if o.bindings == nil {
		return nil, errors.New("outcome has neither truth marker nor bindings")
	}
	return o.bindings.MarshalJSON()
}

// =============================================================================
// Binding Sets
// =============================================================================

// BindingSet maps query variable names to encoded term values. Iteration and
// JSON key order follow insertion order, which the session sets to the order
// of first appearance in the query text.
type BindingSet struct {
	names  []string
	values map[string]any
}

// NewBindingSet returns an empty binding set.
func NewBindingSet() *BindingSet {
	return &BindingSet{values: make(map[string]any)}
}

// Bind appends one variable binding. Rebinding an existing name replaces the
// value without changing its position.
func (b *BindingSet) Bind(name string, value any) {
	if _, ok := b.values[name]; !ok {
		b.names = append(b.names, name)
	}
	b.values[name] = value
}

// Len returns the number of bound variables.
func (b *BindingSet) Len() int { return len(b.names) }

// Names returns the variable names in insertion order.
func (b *BindingSet) Names() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Value returns the encoded value bound to name.
func (b *BindingSet) Value(name string) (any, bool) {
	v, ok := b.values[name]
	return v, ok
}

// MarshalJSON writes the bindings as a JSON object with keys in insertion
// order. encoding/json sorts map keys, so the object is built by hand.
func (b *BindingSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range b.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(b.values[name])
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

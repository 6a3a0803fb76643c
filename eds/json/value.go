/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package json implements a tagged-union JSON value model (null,
// bool, int, double, string, list, object), parsed and formatted on
// top of json-iterator/go rather than encoding/json.
package json

import (
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"
)

// Kind tags which alternative a Value currently holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindDouble
	KindString
	KindList
	KindObject
)

// Value is the tagged-union JSON node: exactly one of the typed
// fields is meaningful, selected by Kind.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	list []Value
	obj  map[string]Value
	// keys preserves object insertion/encounter order for Format.
	keys []string
}

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Null returns the JSON null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps an integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Double wraps a floating point number.
func Double(f float64) Value { return Value{kind: KindDouble, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// List wraps a slice of values.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Object returns an empty object; use Set to populate it.
func Object() Value {
	return Value{kind: KindObject, obj: make(map[string]Value)}
}

// Kind reports which alternative v holds.
func (v Value) Kind() Kind { return v.kind }

// Set assigns key = val on an object value, appending key to the
// encounter order if new. Set on a non-object value is a no-op.
func (v *Value) Set(key string, val Value) {
	if v.kind != KindObject {
		return
	}
	if v.obj == nil {
		v.obj = make(map[string]Value)
	}
	if _, exists := v.obj[key]; !exists {
		v.keys = append(v.keys, key)
	}
	v.obj[key] = val
}

// Append adds an item to a list value. Append on a non-list value is a no-op.
func (v *Value) Append(item Value) {
	if v.kind != KindList {
		return
	}
	v.list = append(v.list, item)
}

// Get returns the field named key on an object value, or Null with ok
// == false if absent or v is not an object —'s
// "default-on-missing getters".
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Null(), false
	}
	val, ok := v.obj[key]
	return val, ok
}

// GetOr returns Get(key), or def if absent.
func (v Value) GetOr(key string, def Value) Value {
	if val, ok := v.Get(key); ok {
		return val
	}
	return def
}

// StringOr returns the string at key, or def if absent or not a string.
func (v Value) StringOr(key, def string) string {
	val, ok := v.Get(key)
	if !ok || val.kind != KindString {
		return def
	}
	return val.s
}

// AsString returns v's string payload, or "" if v is not a string.
func (v Value) AsString() string {
	if v.kind != KindString {
		return ""
	}
	return v.s
}

// AsBool returns v's bool payload, or false if v is not a bool.
func (v Value) AsBool() bool {
	if v.kind != KindBool {
		return false
	}
	return v.b
}

// AsInt returns v's int payload, or 0 if v is not an int.
func (v Value) AsInt() int64 {
	if v.kind != KindInt {
		return 0
	}
	return v.i
}

// Items returns a list value's elements, or nil if v is not a list.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Keys returns an object value's field names in encounter order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	return v.keys
}

// Parse decodes raw JSON bytes into a Value tree.
func Parse(raw []byte) (Value, error) {
	iter := jsonAPI.BorrowIterator(raw)
	defer jsonAPI.ReturnIterator(iter)
	v := parseIter(iter)
	if iter.Error != nil && iter.Error.Error() != "EOF" {
		return Null(), iter.Error
	}
	return v, nil
}

func parseIter(iter *jsoniter.Iterator) Value {
	switch iter.WhatIsNext() {
	case jsoniter.NilValue:
		iter.ReadNil()
		return Null()
	case jsoniter.BoolValue:
		return Bool(iter.ReadBool())
	case jsoniter.NumberValue:
		n := iter.ReadNumber()
		if i, err := n.Int64(); err == nil {
			return Int(i)
		}
		f, _ := n.Float64()
		return Double(f)
	case jsoniter.StringValue:
		return String(iter.ReadString())
	case jsoniter.ArrayValue:
		out := List()
		iter.ReadArrayCB(func(it *jsoniter.Iterator) bool {
			out.Append(parseIter(it))
			return true
		})
		return out
	case jsoniter.ObjectValue:
		out := Object()
		iter.ReadMapCB(func(it *jsoniter.Iterator, field string) bool {
			out.Set(field, parseIter(it))
			return true
		})
		return out
	default:
		iter.Skip()
		return Null()
	}
}

// Format renders v as compact JSON text.
func Format(v Value) string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindDouble:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		b, _ := jsonAPI.Marshal(v.s)
		return string(b)
	case KindList:
		parts := make([]string, len(v.list))
		for i, item := range v.list {
			parts[i] = Format(item)
		}
		return "[" + joinComma(parts) + "]"
	case KindObject:
		keys := v.keys
		if len(keys) == 0 && len(v.obj) > 0 {
			// Value built without Set (e.g. round-tripped) — fall back
			// to sorted keys so output is still deterministic.
			keys = make([]string, 0, len(v.obj))
			for k := range v.obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
		}
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			kb, _ := jsonAPI.Marshal(k)
			parts = append(parts, string(kb)+":"+Format(v.obj[k]))
		}
		return "{" + joinComma(parts) + "}"
	}
	return "null"
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}

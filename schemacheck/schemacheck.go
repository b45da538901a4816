// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package schemacheck validates WAMP CALL arguments and YIELD/RESULT
// payloads against JSON schemas attached to a registration, per
// SPEC_FULL.md §4.J's schema-validation addition to the RPC engine.
package schemacheck

import (
	"fmt"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wampgo/wampcore/wampmsg"
)

// Cache resolves and caches schemas by pointer identity, so a
// registration's ArgSchema/ResultSchema is only compiled once no matter
// how many calls it serves. Grounded on the teacher's schemaCache
// (byType/bySchema sync.Map pair): this module only ever validates
// against pre-defined *jsonschema.Schema values (no reflection over Go
// types, since WAMP arguments are untyped `any`), so only the
// bySchema half of that design is needed here.
type Cache struct {
	bySchema sync.Map // map[*jsonschema.Schema]*jsonschema.Resolved
}

// NewCache constructs an empty, concurrency-safe schema cache.
func NewCache() *Cache { return &Cache{} }

func (c *Cache) resolve(schema *jsonschema.Schema) (*jsonschema.Resolved, error) {
	if v, ok := c.bySchema.Load(schema); ok {
		return v.(*jsonschema.Resolved), nil
	}
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{ValidateDefaults: true})
	if err != nil {
		return nil, fmt.Errorf("schemacheck: resolving schema: %w", err)
	}
	c.bySchema.Store(schema, resolved)
	return resolved, nil
}

// ValidateArgs checks a CALL's positional and keyword arguments against
// schema. A nil schema always passes. Arguments are validated as a
// single JSON object: {"args": [...], "kwargs": {...}}, matching how
// WAMP RPC arguments are conventionally described as one JSON Schema
// document with "args"/"kwargs" properties.
func (c *Cache) ValidateArgs(schema *jsonschema.Schema, args wampmsg.Args, kwargs wampmsg.Kwargs) error {
	if schema == nil {
		return nil
	}
	resolved, err := c.resolve(schema)
	if err != nil {
		return err
	}
	instance := map[string]any{"args": args, "kwargs": kwargs}
	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("schemacheck: arguments do not match schema: %w", err)
	}
	return nil
}

// ValidateResult checks a YIELD/RESULT's positional and keyword values
// against schema, with the same shape as [Cache.ValidateArgs].
func (c *Cache) ValidateResult(schema *jsonschema.Schema, args wampmsg.Args, kwargs wampmsg.Kwargs) error {
	return c.ValidateArgs(schema, args, kwargs)
}

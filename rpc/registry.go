// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package rpc implements the advanced-profile RPC and streaming engine
// described in SPEC_FULL.md §4.J: registration/invocation bookkeeping,
// the three cancellation modes, caller/dealer timeouts, and progressive
// call invocations/results.
package rpc

import (
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wampgo/wampcore/wampmsg"
	"github.com/wampgo/wampcore/werr"
)

// InvocationPolicy selects a callee when multiple registrations share a
// procedure URI, per SPEC_FULL.md §3.
type InvocationPolicy string

const (
	InvocationSingle     InvocationPolicy = "single"
	InvocationFirst      InvocationPolicy = "first"
	InvocationLast       InvocationPolicy = "last"
	InvocationRoundRobin InvocationPolicy = "roundrobin"
	InvocationRandom     InvocationPolicy = "random"
)

// Registration is a single registered procedure, per SPEC_FULL.md §3.
type Registration struct {
	ID                int64
	Procedure         string
	MatchPolicy       wampmsg.MatchPolicy
	InvocationPolicy  InvocationPolicy
	CalleeSessionID   int64
	IsStream          bool
	ExpectsInvitation bool

	// ArgSchema and ResultSchema, when non-nil, are validated by the
	// dealer against CALL arguments and YIELD/RESULT values
	// respectively, per SPEC_FULL.md §4.J's schema-validation addition.
	ArgSchema    *jsonschema.Schema
	ResultSchema *jsonschema.Schema
}

// RegistrationTable owns all registrations for one realm, keyed by
// procedure URI and disambiguated by match policy, per SPEC_FULL.md §3
// ("a registration id ... is never reused within a realm until the
// router has processed its UNREGISTER").
type RegistrationTable struct {
	mu          sync.Mutex
	byID        map[int64]*Registration
	byURIExact  map[string][]*Registration
	byURIPrefix map[string][]*Registration
	byURIWild   map[string][]*Registration
	rrCursor    map[string]int
}

// NewRegistrationTable constructs an empty table.
func NewRegistrationTable() *RegistrationTable {
	return &RegistrationTable{
		byID:        make(map[int64]*Registration),
		byURIExact:  make(map[string][]*Registration),
		byURIPrefix: make(map[string][]*Registration),
		byURIWild:   make(map[string][]*Registration),
		rrCursor:    make(map[string]int),
	}
}

// Register adds reg to the table, or fails with
// werr.WampErrcProcedureAlreadyExists if an exact registration with the
// same URI already exists under the single invocation policy
// (SPEC_FULL.md §4.J.1). Otherwise an exact registration joins any
// existing ones on its URI, and Match picks among them by the first
// registration's invocation policy.
func (t *RegistrationTable) Register(reg *Registration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if reg.MatchPolicy == wampmsg.MatchExact {
		if existing := t.byURIExact[reg.Procedure]; len(existing) > 0 &&
			existing[0].InvocationPolicy == InvocationSingle {
			return werr.WampErrcProcedureAlreadyExists
		}
	}

	t.byID[reg.ID] = reg
	switch reg.MatchPolicy {
	case wampmsg.MatchPrefix:
		t.byURIPrefix[reg.Procedure] = append(t.byURIPrefix[reg.Procedure], reg)
	case wampmsg.MatchWildcard:
		t.byURIWild[reg.Procedure] = append(t.byURIWild[reg.Procedure], reg)
	default:
		t.byURIExact[reg.Procedure] = append(t.byURIExact[reg.Procedure], reg)
	}
	return nil
}

// Unregister removes the registration with id. Idempotent: unregistering
// an unknown id is not an error, per the router's unregister semantics
// in SPEC_FULL.md §4.J.1.
func (t *RegistrationTable) Unregister(id int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	reg, ok := t.byID[id]
	if !ok {
		return
	}
	delete(t.byID, id)
	var bucket map[string][]*Registration
	switch reg.MatchPolicy {
	case wampmsg.MatchPrefix:
		bucket = t.byURIPrefix
	case wampmsg.MatchWildcard:
		bucket = t.byURIWild
	default:
		bucket = t.byURIExact
	}
	regs := bucket[reg.Procedure]
	for i, r := range regs {
		if r.ID == id {
			bucket[reg.Procedure] = append(regs[:i], regs[i+1:]...)
			break
		}
	}
}

// UnregisterSession removes every registration owned by sessionID and
// returns their ids, for use when a callee session leaves the realm.
func (t *RegistrationTable) UnregisterSession(sessionID int64) []int64 {
	t.mu.Lock()
	var ids []int64
	for id, reg := range t.byID {
		if reg.CalleeSessionID == sessionID {
			ids = append(ids, id)
		}
	}
	t.mu.Unlock()

	for _, id := range ids {
		t.Unregister(id)
	}
	return ids
}

// Lookup returns the registration id resolves to, or false.
func (t *RegistrationTable) Lookup(id int64) (*Registration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r, ok := t.byID[id]
	return r, ok
}

// Match resolves procedure to a callee registration following the
// router-side matching rules of SPEC_FULL.md §4.J.1: exact match wins
// outright; otherwise the longest matching prefix registration; otherwise
// the best matching wildcard registration. Ties within a URI are broken
// by the registration's invocation policy.
func (t *RegistrationTable) Match(procedure string) (*Registration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if regs := t.byURIExact[procedure]; len(regs) > 0 {
		return t.pick(procedure, regs), true
	}

	if best, ok := t.bestPrefixMatch(procedure); ok {
		return best, true
	}

	if best, ok := t.bestWildcardMatch(procedure); ok {
		return best, true
	}

	return nil, false
}

func (t *RegistrationTable) bestPrefixMatch(procedure string) (*Registration, bool) {
	var bestURI string
	var bestRegs []*Registration
	for uri, regs := range t.byURIPrefix {
		if len(regs) == 0 {
			continue
		}
		if !strings.HasPrefix(procedure, uri) {
			continue
		}
		if len(uri) > len(bestURI) {
			bestURI, bestRegs = uri, regs
		}
	}
	if bestRegs == nil {
		return nil, false
	}
	return t.pick(bestURI, bestRegs), true
}

func (t *RegistrationTable) bestWildcardMatch(procedure string) (*Registration, bool) {
	callComponents := strings.Split(procedure, ".")
	var bestURI string
	var bestRegs []*Registration
	var bestSpecificity int
	for uri, regs := range t.byURIWild {
		if len(regs) == 0 {
			continue
		}
		specificity, ok := matchWildcard(uri, callComponents)
		if !ok {
			continue
		}
		if bestRegs == nil || specificity > bestSpecificity {
			bestURI, bestRegs, bestSpecificity = uri, regs, specificity
		}
	}
	if bestRegs == nil {
		return nil, false
	}
	return t.pick(bestURI, bestRegs), true
}

// matchWildcard reports whether callComponents matches pattern (a
// dot-separated URI where an empty component is a wildcard), and
// returns the number of non-wildcard components that matched, used to
// break ties between overlapping wildcard registrations.
func matchWildcard(pattern string, callComponents []string) (int, bool) {
	patternComponents := strings.Split(pattern, ".")
	if len(patternComponents) != len(callComponents) {
		return 0, false
	}
	specificity := 0
	for i, p := range patternComponents {
		if p == "" {
			continue
		}
		if p != callComponents[i] {
			return 0, false
		}
		specificity++
	}
	return specificity, true
}

func (t *RegistrationTable) pick(uri string, regs []*Registration) *Registration {
	if len(regs) == 1 {
		return regs[0]
	}
	policy := regs[0].InvocationPolicy
	switch policy {
	case InvocationLast:
		return regs[len(regs)-1]
	case InvocationRoundRobin:
		i := t.rrCursor[uri] % len(regs)
		t.rrCursor[uri] = i + 1
		return regs[i]
	case InvocationRandom:
		return regs[rand.IntN(len(regs))]
	default: // InvocationSingle, InvocationFirst
		return regs[0]
	}
}

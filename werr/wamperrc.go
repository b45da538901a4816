// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package werr defines the closed sets of error kinds used throughout
// wampcore, grouped into categories with equivalence relations between
// them, mirroring the WampErrc/TransportErrc/DecodingErrc/MiscErrc
// categories of the reference WAMP implementation this package is
// modeled on.
package werr

import "sort"

// WampErrc is a WAMP session-layer error code. The zero value is
// [WampErrcSuccess].
type WampErrc int

// WampErrc values, numbered to match the reference implementation so that
// the URI table below stays in the same order as the upstream project.
const (
	WampErrcSuccess WampErrc = iota
	WampErrcUnknown

	// Session close reasons.
	WampErrcCloseRealm
	WampErrcGoodbyeAndOut
	WampErrcSessionKilled
	WampErrcClosedNormally
	WampErrcSystemShutdown

	// Basic profile errors.
	WampErrcInvalidArgument
	WampErrcInvalidURI
	WampErrcNoSuchPrincipal
	WampErrcNoSuchProcedure
	WampErrcNoSuchRealm
	WampErrcNoSuchRegistration
	WampErrcNoSuchRole
	WampErrcNoSuchSubscription
	WampErrcPayloadSizeExceeded
	WampErrcProcedureAlreadyExists
	WampErrcProtocolViolation

	// Advanced profile errors.
	WampErrcAuthenticationDenied
	WampErrcAuthenticationFailed
	WampErrcAuthenticationRequired
	WampErrcAuthorizationDenied
	WampErrcAuthorizationFailed
	WampErrcAuthorizationRequired
	WampErrcCancelled
	WampErrcFeatureNotSupported
	WampErrcDiscloseMeDisallowed
	WampErrcOptionNotAllowed
	WampErrcNetworkFailure
	WampErrcNoAvailableCallee
	WampErrcNoMatchingAuthMethod
	WampErrcNoSuchSession
	WampErrcTimeout
	WampErrcUnavailable

	wampErrcCount
)

// wampURI binds a WampErrc to its canonical URI and message.
// wampErrcByCode is indexed by code; sortedWampURIs holds the same
// entries sorted by URI so ErrorURIToCode can binary-search them, the
// way the reference implementation's errorcodes.ipp does.
type wampURI struct {
	errc WampErrc
	uri  string
	msg  string
}

var wampErrcByCode = [wampErrcCount]wampURI{
	WampErrcSuccess:                {WampErrcSuccess, "", "operation successful"},
	WampErrcUnknown:                {WampErrcUnknown, "", "unknown error URI"},
	WampErrcCloseRealm:             {WampErrcCloseRealm, "wamp.close.close_realm", "session close initiated"},
	WampErrcGoodbyeAndOut:          {WampErrcGoodbyeAndOut, "wamp.close.goodbye_and_out", "session closed normally"},
	WampErrcSessionKilled:          {WampErrcSessionKilled, "wamp.close.session_killed", "session was killed by the router"},
	WampErrcClosedNormally:         {WampErrcClosedNormally, "wamp.close.normal", "session closed normally"},
	WampErrcSystemShutdown:         {WampErrcSystemShutdown, "wamp.close.system_shutdown", "session closing due to imminent shutdown"},
	WampErrcInvalidArgument:        {WampErrcInvalidArgument, "wamp.error.invalid_argument", "the procedure rejected the argument types/values"},
	WampErrcInvalidURI:             {WampErrcInvalidURI, "wamp.error.invalid_uri", "an invalid WAMP URI was provided"},
	WampErrcNoSuchPrincipal:        {WampErrcNoSuchPrincipal, "wamp.error.no_such_principal", "authentication attempted with a non-existent authid"},
	WampErrcNoSuchProcedure:        {WampErrcNoSuchProcedure, "wamp.error.no_such_procedure", "no procedure was registered under the given URI"},
	WampErrcNoSuchRealm:            {WampErrcNoSuchRealm, "wamp.error.no_such_realm", "no realm exists with the given URI"},
	WampErrcNoSuchRegistration:     {WampErrcNoSuchRegistration, "wamp.error.no_such_registration", "no registration exists with the given ID"},
	WampErrcNoSuchRole:             {WampErrcNoSuchRole, "wamp.error.no_such_role", "attempt to authenticate under unsupported role"},
	WampErrcNoSuchSubscription:     {WampErrcNoSuchSubscription, "wamp.error.no_such_subscription", "no subscription exists with the given ID"},
	WampErrcPayloadSizeExceeded:    {WampErrcPayloadSizeExceeded, "wamp.error.payload_size_exceeded", "serialized payload exceeds transport size limits"},
	WampErrcProcedureAlreadyExists: {WampErrcProcedureAlreadyExists, "wamp.error.procedure_already_exists", "a procedure with the given URI is already registered"},
	WampErrcProtocolViolation:      {WampErrcProtocolViolation, "wamp.error.protocol_violation", "invalid, unexpected, or malformed WAMP message"},
	WampErrcAuthenticationDenied:   {WampErrcAuthenticationDenied, "wamp.error.authentication_denied", "authentication was denied"},
	WampErrcAuthenticationFailed:   {WampErrcAuthenticationFailed, "wamp.error.authentication_failed", "the authentication operation itself failed"},
	WampErrcAuthenticationRequired: {WampErrcAuthenticationRequired, "wamp.error.authentication_required", "anonymous authentication not permitted"},
	WampErrcAuthorizationDenied:    {WampErrcAuthorizationDenied, "wamp.error.authorization_denied", "not authorized to perform the action"},
	WampErrcAuthorizationFailed:    {WampErrcAuthorizationFailed, "wamp.error.authorization_failed", "the authorization operation itself failed"},
	WampErrcAuthorizationRequired:  {WampErrcAuthorizationRequired, "wamp.error.authorization_required", "authorization information was missing"},
	WampErrcCancelled:              {WampErrcCancelled, "wamp.error.canceled", "the previously issued call was cancelled"},
	WampErrcFeatureNotSupported:    {WampErrcFeatureNotSupported, "wamp.error.feature_not_supported", "advanced feature is not supported"},
	WampErrcDiscloseMeDisallowed:   {WampErrcDiscloseMeDisallowed, "wamp.error.option_disallowed.disclose_me", "client request to disclose its identity was rejected"},
	WampErrcOptionNotAllowed:       {WampErrcOptionNotAllowed, "wamp.error.option_not_allowed", "option is disallowed by the router"},
	WampErrcNetworkFailure:         {WampErrcNetworkFailure, "wamp.error.network_failure", "router encountered a network failure"},
	WampErrcNoAvailableCallee:      {WampErrcNoAvailableCallee, "wamp.error.no_available_callee", "no available registered callee to handle the invocation"},
	WampErrcNoMatchingAuthMethod:   {WampErrcNoMatchingAuthMethod, "wamp.error.no_matching_auth_method", "no matching authentication method was found"},
	WampErrcNoSuchSession:          {WampErrcNoSuchSession, "wamp.error.no_such_session", "no session exists with the given ID"},
	WampErrcTimeout:                {WampErrcTimeout, "wamp.error.timeout", "operation timed out"},
	WampErrcUnavailable:            {WampErrcUnavailable, "wamp.error.unavailable", "callee is unable to handle the invocation"},
}

// sortedWampURIs is wampErrcByCode re-sorted by URI, built once, so
// errorURIToCode can binary-search it as the reference implementation
// does.
var sortedWampURIs = buildSortedWampURIs()

func buildSortedWampURIs() []wampURI {
	out := make([]wampURI, 0, len(wampErrcByCode))
	for _, e := range wampErrcByCode {
		if e.uri == "" {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].uri < out[j].uri })
	return out
}

// Error implements the error interface.
func (e WampErrc) Error() string {
	if e < 0 || e >= wampErrcCount {
		return "wamp: unrecognized error code"
	}
	return wampErrcByCode[e].msg
}

// URI returns the canonical error URI for e, or "" if e has none (e.g.
// WampErrcSuccess, WampErrcUnknown).
func (e WampErrc) URI() string {
	if e < 0 || e >= wampErrcCount {
		return ""
	}
	return wampErrcByCode[e].uri
}

// ErrorCodeToURI returns the canonical error URI for errc.
func ErrorCodeToURI(errc WampErrc) string {
	if u := errc.URI(); u != "" {
		return u
	}
	return "wamp.error.unknown"
}

// ErrorURIToCode performs a sorted binary search of the canonical URI
// table and returns WampErrcUnknown on miss, exactly as the reference
// implementation's errorUriToCode does. Legacy aliases are resolved by
// the decoding layer, not here.
func ErrorURIToCode(uri string) WampErrc {
	i := sort.Search(len(sortedWampURIs), func(i int) bool {
		return sortedWampURIs[i].uri >= uri
	})
	if i < len(sortedWampURIs) && sortedWampURIs[i].uri == uri {
		return sortedWampURIs[i].errc
	}
	return WampErrcUnknown
}

// Is implements the equivalence relations required by spec.md §4.A:
//
//	sessionKilled ≡ systemShutdown ≡ closeRealm
//	cancelled ≡ timeout
//	optionNotAllowed ≡ discloseMeDisallowed
//
// so that errors.Is(WampErrcSystemShutdown, WampErrcSessionKilled)
// reports true in either direction.
func (e WampErrc) Is(target error) bool {
	t, ok := target.(WampErrc)
	if !ok {
		return false
	}
	if e == t {
		return true
	}
	return sameEquivalenceClass(e, t)
}

var equivalenceClasses = [][]WampErrc{
	{WampErrcSessionKilled, WampErrcSystemShutdown, WampErrcCloseRealm},
	{WampErrcCancelled, WampErrcTimeout},
	{WampErrcOptionNotAllowed, WampErrcDiscloseMeDisallowed},
}

func sameEquivalenceClass(a, b WampErrc) bool {
	for _, class := range equivalenceClasses {
		var hasA, hasB bool
		for _, c := range class {
			hasA = hasA || c == a
			hasB = hasB || c == b
		}
		if hasA && hasB {
			return true
		}
	}
	return false
}

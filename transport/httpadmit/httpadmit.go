// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package httpadmit implements the HTTP admission front-end of
// SPEC_FULL.md §4.H: Host/path-based server-block dispatch on
// github.com/gorilla/mux, custom-handler route templates on
// github.com/yosida95/uritemplate/v3, request-target form validation
// per RFC 9112/9110, body-size and 100-continue handling, and
// error-page rendering. It hands accepted WebSocket upgrades off to
// package wsocket; everything else (static files, custom responses)
// is served directly.
package httpadmit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/yosida95/uritemplate/v3"

	"github.com/wampgo/wampcore/werr"
	"github.com/wampgo/wampcore/wireframe"
)

// DefaultMaxBodyBytes is the body-size limit a [ServerBlock] uses when
// MaxBodyBytes is left at its zero value.
const DefaultMaxBodyBytes int64 = 1_000_000

// effectiveMaxBodyBytes converts a ServerBlock.MaxBodyBytes setting into
// the limit actually enforced: zero selects DefaultMaxBodyBytes, a
// negative value means unbounded (returned as zero, httpadmit's
// internal "no limit" sentinel), and a positive value passes through.
func effectiveMaxBodyBytes(maxBodyBytes int64) int64 {
	switch {
	case maxBodyBytes == 0:
		return DefaultMaxBodyBytes
	case maxBodyBytes < 0:
		return 0
	default:
		return maxBodyBytes
	}
}

// ActionKind names the outcome of dispatching a request-target path to
// a Route, per spec.md §4.H's "dispatch to an action" sentence.
type ActionKind int

const (
	ActionWebSocket ActionKind = iota
	ActionStaticFile
	ActionCustom
)

// CustomHandler serves a request matched against a templated route.
// vars holds the uritemplate variables extracted from the path.
type CustomHandler func(w http.ResponseWriter, r *http.Request, vars uritemplate.Values)

// Route binds one request-target path, expressed either as a literal
// path or a URI template, to an action.
type Route struct {
	// Path is matched literally when Template is nil.
	Path string
	// Template, when set, matches the request-target path against a
	// yosida95/uritemplate/v3 pattern, extracting path variables for
	// Custom.
	Template *uritemplate.Template
	Action   ActionKind

	// StaticDir serves files under this directory when Action is
	// ActionStaticFile; the matched suffix after Path is the file path.
	StaticDir string
	// Custom serves the request when Action is ActionCustom.
	Custom CustomHandler
}

func newRoute(pattern string, action ActionKind) (Route, error) {
	if !strings.ContainsAny(pattern, "{}") {
		return Route{Path: pattern, Action: action}, nil
	}
	tpl, err := uritemplate.New(pattern)
	if err != nil {
		return Route{}, err
	}
	return Route{Template: tpl, Action: action}, nil
}

// StaticRoute registers a static-file route serving dir for any request
// whose path matches pattern (literal, or a uritemplate pattern).
func StaticRoute(pattern, dir string) (Route, error) {
	route, err := newRoute(pattern, ActionStaticFile)
	if err != nil {
		return Route{}, err
	}
	route.StaticDir = dir
	return route, nil
}

// CustomRoute registers handler for any request whose path matches
// pattern (literal, or a uritemplate pattern).
func CustomRoute(pattern string, handler CustomHandler) (Route, error) {
	route, err := newRoute(pattern, ActionCustom)
	if err != nil {
		return Route{}, err
	}
	route.Custom = handler
	return route, nil
}

// WebSocketRoute registers a WAMP WebSocket upgrade endpoint at pattern.
func WebSocketRoute(pattern string) (Route, error) {
	return newRoute(pattern, ActionWebSocket)
}

func (route Route) match(path string) (uritemplate.Values, bool) {
	if route.Template != nil {
		return route.Template.Match(path)
	}
	if route.Path == path {
		return nil, true
	}
	return nil, false
}

// OnUpgrade is invoked after a WebSocket upgrade succeeds, with the
// codec negotiated from the client's requested subprotocols.
type OnUpgrade func(conn *websocket.Conn, codec wireframe.CodecID, r *http.Request)

// ServerBlock is one virtual-host configuration: a Host match pattern
// (as accepted by mux's Router.Host), a body-size limit, a route table,
// and an error-page table.
type ServerBlock struct {
	// HostPattern is a mux host pattern, e.g. "wamp.example.com" or
	// "{subdomain}.example.com".
	HostPattern string
	// MaxBodyBytes bounds the declared Content-Length: zero selects
	// DefaultMaxBodyBytes, a negative value means unbounded, and a
	// positive value is used as-is. Exceeding it yields
	// HTTPAdmitContentTooLarge.
	MaxBodyBytes int64
	Routes       []Route
	ErrorPages   ErrorPageTable
	Upgrader     websocket.Upgrader
	OnUpgrade    OnUpgrade
}

func (b *ServerBlock) dispatch(w http.ResponseWriter, r *http.Request) {
	for _, route := range b.Routes {
		vars, ok := route.match(r.URL.Path)
		if !ok {
			continue
		}
		switch route.Action {
		case ActionWebSocket:
			b.serveWebSocket(w, r)
		case ActionStaticFile:
			b.serveStatic(w, r, route)
		case ActionCustom:
			route.Custom(w, r, vars)
		}
		return
	}
	b.renderError(w, r, werr.HTTPAdmitNotFound)
}

func (b *ServerBlock) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	codec, subprotocol := negotiateCodec(r, b.Upgrader.Subprotocols)
	if subprotocol == "" {
		b.renderError(w, r, werr.HTTPAdmitBadRequest)
		return
	}
	upgrader := b.Upgrader
	upgrader.Subprotocols = []string{subprotocol}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	if b.OnUpgrade != nil {
		b.OnUpgrade(conn, codec, r)
	}
}

func negotiateCodec(r *http.Request, supported []string) (wireframe.CodecID, string) {
	requested := websocket.Subprotocols(r)
	for _, want := range requested {
		for _, have := range supported {
			if want == have {
				switch want {
				case "wamp.2.json":
					return wireframe.CodecIDJSON, want
				case "wamp.2.msgpack":
					return wireframe.CodecIDMsgpack, want
				case "wamp.2.cbor":
					return wireframe.CodecIDCBOR, want
				}
			}
		}
	}
	return 0, ""
}

func (b *ServerBlock) serveStatic(w http.ResponseWriter, r *http.Request, route Route) {
	fs := http.Dir(route.StaticDir)
	http.FileServer(fs).ServeHTTP(w, r)
}

func (b *ServerBlock) renderError(w http.ResponseWriter, r *http.Request, errc werr.HTTPAdmitErrc) {
	b.ErrorPages.Render(w, r, errc)
}

// Router is the top-level HTTP admission front-end: it identifies the
// server block by Host, enforces body-size and request-target-form
// rules, consults an optional [Governor] for overload shedding, then
// dispatches to the block's routes.
type Router struct {
	mux      *mux.Router
	blocks   []*ServerBlock
	governor *Governor
}

// NewRouter builds an empty Router. Use AddServerBlock to register
// virtual hosts before serving traffic.
func NewRouter() *Router {
	return &Router{mux: mux.NewRouter()}
}

// ServerBlocks returns the server blocks registered so far, in
// registration order.
func (rt *Router) ServerBlocks() []*ServerBlock { return rt.blocks }

// SetGovernor attaches an admission governor; when it is shedding, every
// request is rejected with HTTPAdmitTooManyRequests before any other
// processing occurs.
func (rt *Router) SetGovernor(g *Governor) { rt.governor = g }

// AddServerBlock registers block, dispatched to any request whose Host
// header matches block.HostPattern.
func (rt *Router) AddServerBlock(block *ServerBlock) {
	rt.blocks = append(rt.blocks, block)
	rt.mux.Host(block.HostPattern).Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rt.admit(block, w, r)
	}))
}

// ServeHTTP implements http.Handler. Requests whose Host matches no
// registered server block receive HTTPAdmitMisdirectedRequest.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if rt.governor != nil && !rt.governor.Allow() {
		rt.shed(w, r)
		return
	}
	var match mux.RouteMatch
	if !rt.mux.Match(r, &match) {
		rt.renderUnmatched(w, r, werr.HTTPAdmitMisdirectedRequest)
		return
	}
	rt.mux.ServeHTTP(w, r)
}

func (rt *Router) renderUnmatched(w http.ResponseWriter, r *http.Request, errc werr.HTTPAdmitErrc) {
	(ErrorPageTable{}).Render(w, r, errc)
}

func (rt *Router) shed(w http.ResponseWriter, r *http.Request) {
	if retryAfter := rt.governor.RetryAfter(); retryAfter > 0 {
		secs := int(retryAfter.Seconds())
		if secs < 1 {
			secs = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}
	w.Header().Set("Connection", "close")
	http.Error(w, werr.HTTPAdmitTooManyRequests.Error(), werr.HTTPAdmitTooManyRequests.StatusCode())
}

func (rt *Router) admit(block *ServerBlock, w http.ResponseWriter, r *http.Request) {
	if err := validateRequestTarget(r); err != nil {
		block.renderError(w, r, err.(werr.HTTPAdmitErrc))
		return
	}
	if limit := effectiveMaxBodyBytes(block.MaxBodyBytes); limit > 0 {
		if r.ContentLength > limit {
			block.renderError(w, r, werr.HTTPAdmitContentTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	rw := &keepAliveWriter{ResponseWriter: w, requested: requestedKeepAlive(r)}
	block.dispatch(rw, r)
	rw.finish()
}

// requestedKeepAlive reports whether r asked to keep the connection
// open, per HTTP/1.1's default-keep-alive and HTTP/1.0's opt-in.
func requestedKeepAlive(r *http.Request) bool {
	if r.Close {
		return false
	}
	if r.ProtoAtLeast(1, 1) {
		return !hasConnectionToken(r.Header.Get("Connection"), "close")
	}
	return hasConnectionToken(r.Header.Get("Connection"), "keep-alive")
}

func hasConnectionToken(header, token string) bool {
	for _, part := range strings.Split(header, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// keepAliveWriter tracks the response status so the Router can force
// Connection: close for any non-2xx outcome, per spec.md §4.H ("keep-
// alive is honored iff the response is 2xx and the request requested
// it").
type keepAliveWriter struct {
	http.ResponseWriter
	requested   bool
	wroteHeader bool
}

func (w *keepAliveWriter) WriteHeader(status int) {
	w.wroteHeader = true
	if !(w.requested && status >= 200 && status < 300) {
		w.Header().Set("Connection", "close")
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *keepAliveWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *keepAliveWriter) finish() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
}

// validateRequestTarget implements the RFC 9112/9110 request-target
// form check from spec.md §4.H: only origin-form, absolute-form,
// authority-form (CONNECT only), and asterisk-form (OPTIONS only) are
// legal; anything else is rejected.
func validateRequestTarget(r *http.Request) error {
	switch {
	case r.RequestURI == "*":
		if r.Method != http.MethodOptions {
			return werr.HTTPAdmitBadRequest
		}
		return nil
	case r.Method == http.MethodConnect:
		if _, _, err := net.SplitHostPort(r.RequestURI); err != nil {
			return werr.HTTPAdmitBadRequest
		}
		return nil
	case r.URL.IsAbs():
		return nil
	default:
		if !strings.HasPrefix(r.RequestURI, "/") {
			return werr.HTTPAdmitBadRequest
		}
		return nil
	}
}


// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package httpadmit

import (
	"fmt"
	"net/http"

	"github.com/wampgo/wampcore/werr"
)

// ErrorPage describes how to render one admission failure: a redirect,
// a custom generator, or a plain-text/HTML body.
type ErrorPage struct {
	// Redirect, if set, sends a 3xx to this location instead of
	// rendering a body.
	Redirect string
	// Generator, if set, takes over rendering entirely.
	Generator func(w http.ResponseWriter, r *http.Request, errc werr.HTTPAdmitErrc)
	// HTML, if true, renders Body (or the default message) with
	// Content-Type text/html; otherwise text/plain.
	HTML bool
	// Body overrides the default "<status> <message>" text.
	Body string
}

// ErrorPageTable maps an admission error to its page, per server block.
// A zero-value table renders every error as plain text with its default
// message.
type ErrorPageTable map[werr.HTTPAdmitErrc]ErrorPage

// Render writes the response for errc, honoring table's configured
// redirect/generator/body, or falling back to a plain-text default.
func (table ErrorPageTable) Render(w http.ResponseWriter, r *http.Request, errc werr.HTTPAdmitErrc) {
	page, ok := table[errc]
	if !ok {
		http.Error(w, errc.Error(), errc.StatusCode())
		return
	}
	if page.Generator != nil {
		page.Generator(w, r, errc)
		return
	}
	if page.Redirect != "" {
		http.Redirect(w, r, page.Redirect, http.StatusFound)
		return
	}

	body := page.Body
	if body == "" {
		body = fmt.Sprintf("%d %s", errc.StatusCode(), errc.Error())
	}
	if page.HTML {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.WriteHeader(errc.StatusCode())
	_, _ = w.Write([]byte(body))
}

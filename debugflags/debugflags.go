// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package debugflags provides a mechanism to tune runtime compatibility
// and debugging knobs via the WAMPGODEBUG environment variable, per
// SPEC_FULL.md §4.Q.
//
// The value of WAMPGODEBUG is a comma-separated list of key=value pairs.
// For example:
//
//	WAMPGODEBUG=strictdecode=1,deadlinejitter=0.1
package debugflags

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const envKey = "WAMPGODEBUG"

var params map[string]string

func init() {
	var err error
	params, err = parse(os.Getenv(envKey))
	if err != nil {
		panic(err)
	}
}

// Value returns the value of the flag with the given key, or "" if it is
// not set.
func Value(key string) string {
	return params[key]
}

func parse(envValue string) (map[string]string, error) {
	if envValue == "" {
		return nil, nil
	}

	out := make(map[string]string)
	for _, part := range strings.Split(envValue, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%s: invalid format: %q", envKey, part)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}

// StrictDecoding reports whether "strictdecode" is set to a true-ish
// value. When set, decoders that would otherwise tolerate a malformed
// optional field by leaving it at its zero value instead fail the
// decode.
func StrictDecoding() bool {
	v, _ := strconv.ParseBool(Value("strictdecode"))
	return v
}

// SetForTest overrides a flag's value for the duration of a test,
// returning a restore func to undo it.
func SetForTest(key, value string) (restore func()) {
	prev, had := params[key]
	if params == nil {
		params = make(map[string]string)
	}
	params[key] = value
	return func() {
		if had {
			params[key] = prev
		} else {
			delete(params, key)
		}
	}
}

// DeadlineJitter returns the "deadlinejitter" fraction (e.g. 0.1 for
// ±10%) used to desynchronize deadlines across many connections armed at
// the same instant, and whether it was set to a valid, positive value.
func DeadlineJitter() (float64, bool) {
	raw := Value("deadlinejitter")
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f <= 0 {
		return 0, false
	}
	return f, true
}

// Copyright 2025 The wampcore Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package debugflags

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse_Success(t *testing.T) {
	tests := []struct {
		name   string
		envVal string
		want   map[string]string
	}{
		{
			name:   "Basic",
			envVal: "strictdecode=1,deadlinejitter=0.1",
			want: map[string]string{
				"strictdecode":   "1",
				"deadlinejitter": "0.1",
			},
		},
		{
			name:   "Empty",
			envVal: "",
			want:   nil,
		},
		{
			name:   "WithWhitespace",
			envVal: "  strictdecode = 1  \t,  deadlinejitter  = 0.1  ",
			want: map[string]string{
				"strictdecode":   "1",
				"deadlinejitter": "0.1",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parse(tt.envVal)
			if err != nil {
				t.Fatalf("parse() failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Failure(t *testing.T) {
	tests := []struct {
		name   string
		envVal string
	}{
		{name: "NoEqualsSign", envVal: "invalidformat"},
		{name: "EmptyPart", envVal: "strictdecode=1,,deadlinejitter=0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parse(tt.envVal); err == nil {
				t.Error("parse() expected error, got nil")
			}
		})
	}
}

func TestStrictDecoding(t *testing.T) {
	params = map[string]string{"strictdecode": "true"}
	defer func() { params = nil }()
	if !StrictDecoding() {
		t.Fatal("StrictDecoding() = false, want true")
	}
}

func TestDeadlineJitterRejectsNonPositive(t *testing.T) {
	params = map[string]string{"deadlinejitter": "-1"}
	defer func() { params = nil }()
	if _, ok := DeadlineJitter(); ok {
		t.Fatal("DeadlineJitter() accepted a non-positive value")
	}
}

func TestDeadlineJitterParsesFraction(t *testing.T) {
	params = map[string]string{"deadlinejitter": "0.25"}
	defer func() { params = nil }()
	f, ok := DeadlineJitter()
	if !ok || f != 0.25 {
		t.Fatalf("DeadlineJitter() = (%v, %v), want (0.25, true)", f, ok)
	}
}

package wampmsg

import (
	"testing"

	"github.com/wampgo/wampcore/debugflags"
)

func TestValidateNoDuplicateKeysRejectsCaseVariants(t *testing.T) {
	err := validateNoDuplicateKeys([]byte(`{"realm":"r1","Realm":"r2"}`))
	if err == nil {
		t.Fatal("expected error for case-variant duplicate keys")
	}
}

func TestValidateNoDuplicateKeysRejectsNestedCaseVariants(t *testing.T) {
	err := validateNoDuplicateKeys([]byte(`{"details":{"roles":{},"Roles":{}}}`))
	if err == nil {
		t.Fatal("expected error for duplicate keys nested inside an object")
	}
}

func TestValidateNoDuplicateKeysAllowsDistinctKeys(t *testing.T) {
	if err := validateNoDuplicateKeys([]byte(`{"realm":"r1","details":{"roles":{}}}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateNoDuplicateKeysIgnoresNonObjects(t *testing.T) {
	if err := validateNoDuplicateKeys([]byte(`42`)); err != nil {
		t.Fatalf("unexpected error for a non-object field: %v", err)
	}
}

func TestJSONCodecStrictModeRejectsDuplicateCaseKeysInOptions(t *testing.T) {
	restore := debugflags.SetForTest("strictdecode", "1")
	defer restore()

	var c JSONCodec
	payload := []byte(`[1,"realm1",{"roles":{},"Roles":{}}]`)
	if _, err := c.Decode(payload); err == nil {
		t.Fatal("expected strict decode to reject a case-variant duplicate key in Details")
	}
}

func TestJSONCodecLenientModeToleratesDuplicateCaseKeysInOptions(t *testing.T) {
	var c JSONCodec
	payload := []byte(`[1,"realm1",{"roles":{},"Roles":{}}]`)
	if _, err := c.Decode(payload); err != nil {
		t.Fatalf("unexpected error decoding leniently: %v", err)
	}
}

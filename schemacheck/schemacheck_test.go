package schemacheck

import (
	"testing"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wampgo/wampcore/wampmsg"
)

func kwargsSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"kwargs": {
				Type:     "object",
				Required: []string{"name"},
				Properties: map[string]*jsonschema.Schema{
					"name": {Type: "string"},
				},
			},
		},
	}
}

func TestCacheValidateArgsNilSchemaAlwaysPasses(t *testing.T) {
	c := NewCache()
	if err := c.ValidateArgs(nil, nil, nil); err != nil {
		t.Errorf("expected nil schema to always pass, got %v", err)
	}
}

func TestCacheValidateArgsAcceptsMatchingKwargs(t *testing.T) {
	c := NewCache()
	schema := kwargsSchema()
	err := c.ValidateArgs(schema, nil, wampmsg.Kwargs{"name": "alice"})
	if err != nil {
		t.Errorf("ValidateArgs: %v", err)
	}
}

func TestCacheValidateArgsRejectsMissingRequiredField(t *testing.T) {
	c := NewCache()
	schema := kwargsSchema()
	err := c.ValidateArgs(schema, nil, wampmsg.Kwargs{})
	if err == nil {
		t.Error("expected error for missing required kwarg")
	}
}

func TestCacheResolvesSchemaOnlyOnce(t *testing.T) {
	c := NewCache()
	schema := kwargsSchema()
	if err := c.ValidateArgs(schema, nil, wampmsg.Kwargs{"name": "a"}); err != nil {
		t.Fatalf("first ValidateArgs: %v", err)
	}
	if _, ok := c.bySchema.Load(schema); !ok {
		t.Fatalf("expected schema to be cached after first resolve")
	}
	if err := c.ValidateArgs(schema, nil, wampmsg.Kwargs{"name": "b"}); err != nil {
		t.Fatalf("second ValidateArgs: %v", err)
	}
}

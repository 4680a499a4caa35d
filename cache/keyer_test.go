package cache

import (
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"empty key", "", ErrInvalidKey},
		{"valid key", "style:computed", nil},
		{"too long", strings.Repeat("x", MaxKeyLength+1), ErrKeyTooLong},
		{"contains newline", "key\nwith\nnewlines", ErrInvalidKey},
		{"contains carriage return", "key\rwith\rreturns", ErrInvalidKey},
		{"whitespace only", "   ", ErrInvalidKey},
		{"max length exactly", strings.Repeat("x", MaxKeyLength), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateKey(tt.key); err != tt.wantErr {
				t.Errorf("ValidateKey(%q) = %v, want %v", tt.key, err, tt.wantErr)
			}
		})
	}
}

func TestKeyer_DeterministicForMaps(t *testing.T) {
	keyer := NewDefaultKeyer()

	map1 := map[string]any{"b": 2, "a": 1, "c": 3}
	map2 := map[string]any{"a": 1, "c": 3, "b": 2}

	key1, err := keyer.Key("layout", map1)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	key2, err := keyer.Key("layout", map2)
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	if key1 != key2 {
		t.Errorf("Keys should be equal for same content:\n  key1=%s\n  key2=%s", key1, key2)
	}
}

func TestKeyer_NestedMaps(t *testing.T) {
	keyer := NewDefaultKeyer()

	in1 := map[string]any{"box": map[string]any{"w": 10, "h": 20}, "list": []any{map[string]any{"y": 1, "x": 2}}}
	in2 := map[string]any{"list": []any{map[string]any{"x": 2, "y": 1}}, "box": map[string]any{"h": 20, "w": 10}}

	key1, _ := keyer.Key("layout", in1)
	key2, _ := keyer.Key("layout", in2)
	if key1 != key2 {
		t.Errorf("nested maps should canonicalize:\n  key1=%s\n  key2=%s", key1, key2)
	}
}

func TestKeyer_ArrayOrderPreserved(t *testing.T) {
	keyer := NewDefaultKeyer()

	key1, _ := keyer.Key("layout", map[string]any{"items": []any{1, 2, 3}})
	key2, _ := keyer.Key("layout", map[string]any{"items": []any{3, 2, 1}})
	if key1 == key2 {
		t.Errorf("Keys should differ for different array order: %s", key1)
	}
}

func TestKeyer_NamespacesDiffer(t *testing.T) {
	keyer := NewDefaultKeyer()
	input := map[string]any{"query": "test"}

	key1, _ := keyer.Key("style", input)
	key2, _ := keyer.Key("layout", input)
	if key1 == key2 {
		t.Errorf("Keys should differ across namespaces: %s", key1)
	}
}

func TestKeyer_KeyFormat(t *testing.T) {
	keyer := NewDefaultKeyer()

	key, err := keyer.Key("glyphs", map[string]any{"font": "serif"})
	if err != nil {
		t.Fatalf("Key() error = %v", err)
	}
	prefix := "glyphs:"
	if !strings.HasPrefix(key, prefix) {
		t.Fatalf("Key should have prefix %q, got %q", prefix, key)
	}
	if hash := strings.TrimPrefix(key, prefix); len(hash) != 16 {
		t.Errorf("hash length = %d, want 16 (%q)", len(hash), hash)
	}
}

func TestKeyer_NilInput(t *testing.T) {
	keyer := NewDefaultKeyer()
	key1, err := keyer.Key("ns", nil)
	if err != nil {
		t.Fatalf("Key(nil) error = %v", err)
	}
	key2, _ := keyer.Key("ns", nil)
	if key1 != key2 {
		t.Errorf("nil input should be deterministic: %s vs %s", key1, key2)
	}
}

func TestKeyer_UnencodableInput(t *testing.T) {
	keyer := NewDefaultKeyer()
	if _, err := keyer.Key("ns", map[string]any{"fn": func() {}}); err == nil {
		t.Error("expected error for unencodable input")
	}
}

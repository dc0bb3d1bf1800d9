package chunk

import (
	"regexp"
	"testing"
)

func TestNew_Valid(t *testing.T) {
	meta := map[string]any{"source": "owasp"}

	c, err := New("doc_0_abcd1234", "doc", "prompt injection", meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ID() != "doc_0_abcd1234" {
		t.Errorf("ID() = %q", c.ID())
	}
	if c.DocumentID() != "doc" {
		t.Errorf("DocumentID() = %q", c.DocumentID())
	}
	if c.Text() != "prompt injection" {
		t.Errorf("Text() = %q", c.Text())
	}
	if c.Metadata()["source"] != "owasp" {
		t.Errorf("Metadata() = %v", c.Metadata())
	}
}

func TestNew_ClonesMetadata(t *testing.T) {
	meta := map[string]any{"k": "v"}
	c, _ := New("id", "doc", "text", meta)

	meta["k"] = "changed"
	if c.Metadata()["k"] != "v" {
		t.Error("metadata should be cloned on construction")
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name, id, doc, text string
	}{
		{"empty id", "", "doc", "text"},
		{"empty document", "id", "", "text"},
		{"blank text", "id", "doc", "   \n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.id, tc.doc, tc.text, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestNewID_Format(t *testing.T) {
	re := regexp.MustCompile(`^policy_3_[0-9a-f]{8}$`)
	id := NewID("policy", 3)
	if !re.MatchString(id) {
		t.Fatalf("unexpected id format: %q", id)
	}
}

func TestNewID_Distinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewID("doc", 0)
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

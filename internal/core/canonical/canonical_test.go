package canonical

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/juzgadolab/sentencia-ciudadana/internal/core/domain"
)

func sampleMessages() []domain.Message {
	return []domain.Message{
		domain.SystemMessage("Eres un asistente que redacta sentencias ciudadanas."),
		domain.UserMessage("# Estas son las fuentes de información disponibles"),
	}
}

func TestFingerprintStableAcrossCalls(t *testing.T) {
	first, _, err := FingerprintMessages(sampleMessages())
	if err != nil {
		t.Fatalf("FingerprintMessages() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, _, err := FingerprintMessages(sampleMessages())
		if err != nil {
			t.Fatalf("FingerprintMessages() error = %v", err)
		}
		if again != first {
			t.Fatalf("fingerprint changed between calls: %s vs %s", first, again)
		}
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(first))
	}
}

func TestCanonicalizeSortsObjectKeys(t *testing.T) {
	canonicalBytes, err := Canonicalize(sampleMessages())
	if err != nil {
		t.Fatalf("Canonicalize() error = %v", err)
	}
	text := string(canonicalBytes)
	if strings.Index(text, `"content"`) > strings.Index(text, `"role"`) {
		t.Fatalf("expected content key before role key, got:\n%s", text)
	}
	if !strings.Contains(text, "    \"content\"") {
		t.Fatalf("expected 4-space indentation, got:\n%s", text)
	}
}

func TestFingerprintIndependentOfInsertionOrder(t *testing.T) {
	// A message built role-first must serialize identically to one built
	// content-first: key order inside each pair is not significant.
	roleFirst := domain.Message{Role: domain.RoleUser, Content: "hola"}
	contentFirst := domain.Message{Content: "hola", Role: domain.RoleUser}

	a, _, err := FingerprintMessages([]domain.Message{roleFirst})
	if err != nil {
		t.Fatalf("FingerprintMessages() error = %v", err)
	}
	b, _, err := FingerprintMessages([]domain.Message{contentFirst})
	if err != nil {
		t.Fatalf("FingerprintMessages() error = %v", err)
	}
	if a != b {
		t.Fatalf("fingerprint depends on field assignment order: %s vs %s", a, b)
	}
}

func TestFingerprintChangesWithContentAndOrder(t *testing.T) {
	base, _, _ := FingerprintMessages(sampleMessages())

	altered := sampleMessages()
	altered[1].Content += "."
	changed, _, _ := FingerprintMessages(altered)
	if changed == base {
		t.Fatalf("expected fingerprint change when content changes")
	}

	swapped := sampleMessages()
	swapped[0], swapped[1] = swapped[1], swapped[0]
	reordered, _, _ := FingerprintMessages(swapped)
	if reordered == base {
		t.Fatalf("expected fingerprint change when message order changes")
	}
}

func TestCanonicalBytesRoundTrip(t *testing.T) {
	canonicalBytes, err := Canonicalize(sampleMessages())
	if err != nil {
		t.Fatalf("Canonicalize() error = %v", err)
	}
	var decoded []domain.Message
	if err := json.Unmarshal(canonicalBytes, &decoded); err != nil {
		t.Fatalf("unmarshal canonical bytes: %v", err)
	}
	if len(decoded) != 2 || decoded[0].Role != domain.RoleSystem {
		t.Fatalf("unexpected round-trip result: %+v", decoded)
	}
}

package normalize

import (
	"strings"
	"testing"
)

func TestUnwrapMarkdownBlock(t *testing.T) {
	got := UnwrapMarkdown("```markdown\nHola\n```")
	if got != "Hola" {
		t.Fatalf("UnwrapMarkdown() = %q, want %q", got, "Hola")
	}
}

func TestUnwrapMarkdownPassesThroughUnwrapped(t *testing.T) {
	cases := []string{
		"Hola",
		"```markdown\nsin cierre",
		"texto con ``` fence normal\ncódigo\n```",
	}
	for _, input := range cases {
		if got := UnwrapMarkdown(input); got != input {
			t.Fatalf("UnwrapMarkdown(%q) = %q, expected passthrough", input, got)
		}
	}
}

func TestStripReasoningKeepsOnlyRemainder(t *testing.T) {
	input := "<think>razonamiento interno\nmás razonamiento</think>\n\nLa sentencia dice lo siguiente."
	got := StripReasoning(input)
	if got != "La sentencia dice lo siguiente." {
		t.Fatalf("StripReasoning() = %q", got)
	}
	if StripReasoning("sin etiqueta") != "sin etiqueta" {
		t.Fatalf("expected passthrough without delimiter")
	}
}

func TestStripRejectionDetectsEquivalentTags(t *testing.T) {
	for _, tag := range []string{"<REJECTED />", "<rejected />", "<rechazado />"} {
		text, rejected := StripRejection("No es posible aplicar el cambio. " + tag)
		if !rejected {
			t.Fatalf("tag %q not detected", tag)
		}
		if strings.Contains(text, tag) {
			t.Fatalf("tag %q not stripped: %q", tag, text)
		}
	}

	text, rejected := StripRejection("Texto normal")
	if rejected || text != "Texto normal" {
		t.Fatalf("false positive: %q rejected=%v", text, rejected)
	}
}

func TestRemoveQuestionLinesAndRules(t *testing.T) {
	input := "## ¿Qué decidió el juez?\nEl juez ordenó el pago.\n---\n**¿Quién ganó?**\nLa parte actora.\n***\nFin."
	got := RemoveQuestionLines(input)
	if strings.Contains(got, "¿") {
		t.Fatalf("question lines survived: %q", got)
	}
	if strings.Contains(got, "---") || strings.Contains(got, "***") {
		t.Fatalf("horizontal rules survived: %q", got)
	}
	for _, keep := range []string{"El juez ordenó el pago.", "La parte actora.", "Fin."} {
		if !strings.Contains(got, keep) {
			t.Fatalf("content line removed: %q missing from %q", keep, got)
		}
	}
}

func TestRemoveQuestionLinesKeepsInlineQuestions(t *testing.T) {
	input := "El tribunal analizó ¿procede el amparo? y concluyó que sí."
	if got := RemoveQuestionLines(input); got != input {
		t.Fatalf("inline question altered: %q", got)
	}
}

func TestCleanChainIsFixedPointOnCleanText(t *testing.T) {
	clean := "La sentencia ordena a la parte demandada pagar la cantidad reclamada.\n\nEl plazo para cumplir es de quince días hábiles."
	once, rejected := Clean(clean)
	if rejected {
		t.Fatalf("clean text flagged as rejected")
	}
	if once != clean {
		t.Fatalf("chain not fixed point:\nin:  %q\nout: %q", clean, once)
	}
	twice, _ := Clean(once)
	if twice != once {
		t.Fatalf("chain not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
}

func TestCleanFullChainOrder(t *testing.T) {
	raw := "```markdown\n<think>pensando</think>\n## ¿Qué pasó?\nSe confirma la resolución. <rechazado />\n---\n```"
	got, rejected := Clean(raw)
	if !rejected {
		t.Fatalf("rejection sentinel not detected")
	}
	if got != "Se confirma la resolución." {
		t.Fatalf("Clean() = %q", got)
	}
}

func TestCleanSentenceSkipsSentinelDetection(t *testing.T) {
	got := CleanSentence("```markdown\nTexto corregido de la sentencia.\n```")
	if got != "Texto corregido de la sentencia." {
		t.Fatalf("CleanSentence() = %q", got)
	}
}

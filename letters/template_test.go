package letters

import (
	"reflect"
	"strings"
	"testing"
)

func TestReplaceVariablesBothStyles(t *testing.T) {
	html := `<p>שלום [client_name], הסכום הוא {{amount}} נכון ל-[date].</p>`
	out := ReplaceVariables(html, map[string]string{
		"client_name": "חברת הדגמה בע\"מ",
		"amount":      "52,000",
		"date":        "01/01/2025",
	})
	expected := `<p>שלום חברת הדגמה בע"מ, הסכום הוא 52,000 נכון ל-01/01/2025.</p>`
	if out != expected {
		t.Fatalf("got %q", out)
	}
}

func TestReplaceVariablesUnknownStaysVerbatim(t *testing.T) {
	html := `<p>[תאריך] {{missing_key}}</p>`
	out := ReplaceVariables(html, map[string]string{"תאריך": "05/01/2025"})
	if !strings.Contains(out, "05/01/2025") {
		t.Fatalf("known placeholder not replaced: %q", out)
	}
	if !strings.Contains(out, "{{missing_key}}") {
		t.Fatalf("unknown placeholder must stay verbatim: %q", out)
	}
}

func TestReplaceWithEmptyBagIsIdentityOnNames(t *testing.T) {
	html := `<div>[a] and {{b}} and [ שם ]</div>`
	before := ExtractVariables(html)
	after := ExtractVariables(ReplaceVariables(html, nil))
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("extract after empty replace changed: %v vs %v", before, after)
	}
}

func TestExtractVariables(t *testing.T) {
	html := `<p>[client_name] owes {{amount}}; contact [client_name] again. {{ amount }}</p>`
	got := ExtractVariables(html)
	expected := []string{"amount", "client_name"}
	if !reflect.DeepEqual(got, expected) {
		t.Fatalf("got %v, expected %v", got, expected)
	}
}

func TestExtractVariablesIdempotent(t *testing.T) {
	html := `<p>[x] {{y}} [x] {{z}}</p>`
	first := ExtractVariables(html)
	second := ExtractVariables(html)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated extraction differs: %v vs %v", first, second)
	}
}

func TestSanitizeHTML(t *testing.T) {
	html := `<p onclick="steal()">hi</p><script>alert(1)</script><iframe src="x"></iframe><b>ok</b>`
	out := SanitizeHTML(html)
	if strings.Contains(out, "<script") || strings.Contains(out, "<iframe") {
		t.Fatalf("dangerous block survived: %q", out)
	}
	if strings.Contains(strings.ToLower(out), "onclick") {
		t.Fatalf("event handler survived: %q", out)
	}
	if !strings.Contains(out, "<b>ok</b>") {
		t.Fatalf("benign markup stripped: %q", out)
	}
}

func TestHTMLToText(t *testing.T) {
	html := `<h1>Title</h1><p>line one<br/>line two</p><p>&nbsp;spaced &amp; escaped</p>`
	out := HTMLToText(html)
	expected := "Title\nline one\nline two\nspaced & escaped"
	if out != expected {
		t.Fatalf("got %q", out)
	}
}

func TestResolveImageTokens(t *testing.T) {
	html := `<img src="cid:firm-logo"/><img src="cid:unknown-token"/>`
	out := ResolveImageTokens(html)
	if strings.Contains(out, "cid:firm-logo") {
		t.Fatalf("known token not resolved: %q", out)
	}
	if !strings.Contains(out, "cid:unknown-token") {
		t.Fatalf("unknown token must stay as-is: %q", out)
	}
}

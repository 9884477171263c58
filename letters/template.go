package letters

import (
	"regexp"
	"sort"
	"strings"
)

// Placeholder syntaxes: [name] and {{name}}. Both appear in the template
// library, so the parser accepts either everywhere. Patterns are compiled
// once; matching itself carries no state between calls.
var (
	bracketPlaceholderRe = regexp.MustCompile(`\[([^\[\]]+)\]`)
	bracePlaceholderRe   = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

	scriptBlockRe  = regexp.MustCompile(`(?is)<script\b.*?</script\s*>`)
	iframeBlockRe  = regexp.MustCompile(`(?is)<iframe\b.*?</iframe\s*>`)
	eventHandlerRe = regexp.MustCompile(`(?i)\son[a-z]+\s*=\s*("[^"]*"|'[^']*'|[^\s>]+)`)
	htmlTagRe      = regexp.MustCompile(`(?s)<[^>]*>`)
	brTagRe        = regexp.MustCompile(`(?i)<br\s*/?\s*>`)
	blockCloseRe   = regexp.MustCompile(`(?i)</(p|div|h[1-6]|li|tr)\s*>`)
)

// ReplaceVariables substitutes every placeholder whose name has a value in
// the bag. Placeholders with no matching key stay verbatim in the output, so
// a missing variable is visible in the preview instead of silently dropped.
func ReplaceVariables(html string, variables map[string]string) string {
	replace := func(match, name string) string {
		if value, ok := variables[name]; ok {
			return value
		}
		return match
	}
	out := bracketPlaceholderRe.ReplaceAllStringFunc(html, func(m string) string {
		return replace(m, m[1:len(m)-1])
	})
	out = bracePlaceholderRe.ReplaceAllStringFunc(out, func(m string) string {
		return replace(m, strings.TrimSpace(m[2:len(m)-2]))
	})
	return out
}

// ExtractVariables returns the sorted set of placeholder names present in the
// template, regardless of bracket style.
func ExtractVariables(html string) []string {
	seen := make(map[string]struct{})
	for _, m := range bracketPlaceholderRe.FindAllStringSubmatch(html, -1) {
		seen[m[1]] = struct{}{}
	}
	for _, m := range bracePlaceholderRe.FindAllStringSubmatch(html, -1) {
		seen[strings.TrimSpace(m[1])] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SanitizeHTML strips script and iframe blocks and inline on* event handlers
// before HTML reaches a preview surface. Best-effort filtering of known
// dangerous patterns, not a security boundary for untrusted input.
func SanitizeHTML(html string) string {
	out := scriptBlockRe.ReplaceAllString(html, "")
	out = iframeBlockRe.ReplaceAllString(out, "")
	out = eventHandlerRe.ReplaceAllString(out, "")
	return out
}

// HTMLToText produces a rough plain-text rendering for previews and logs.
func HTMLToText(html string) string {
	out := brTagRe.ReplaceAllString(html, "\n")
	out = blockCloseRe.ReplaceAllString(out, "\n")
	out = htmlTagRe.ReplaceAllString(out, "")
	out = strings.ReplaceAll(out, "&nbsp;", " ")
	out = strings.ReplaceAll(out, "&amp;", "&")
	out = strings.ReplaceAll(out, "&lt;", "<")
	out = strings.ReplaceAll(out, "&gt;", ">")
	out = strings.ReplaceAll(out, "&quot;", `"`)

	lines := strings.Split(out, "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// imageTokens maps embedded-image cid: tokens to public asset URLs. Persisted
// letter HTML keeps the raw cid: tokens so PDF generation can re-resolve them;
// only display surfaces call ResolveImageTokens.
var imageTokens = map[string]string{
	"cid:firm-logo":      "/assets/letters/firm-logo.png",
	"cid:firm-signature": "/assets/letters/firm-signature.png",
	"cid:letter-header":  "/assets/letters/letter-header.png",
	"cid:letter-footer":  "/assets/letters/letter-footer.png",
}

// ResolveImageTokens rewrites known cid: tokens to their public URLs.
// Unknown tokens stay as-is.
func ResolveImageTokens(html string) string {
	out := html
	for token, url := range imageTokens {
		out = strings.ReplaceAll(out, token, url)
	}
	return out
}

package render

import "strings"

// textEscaper covers the characters that can change meaning inside element
// content.
var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// attrEscaper additionally encodes whitespace that would otherwise break
// attribute parsing in a double-quoted value.
var attrEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
	"\n", "&#10;",
	"\r", "&#13;",
	"\t", "&#9;",
)

// escapeHTML escapes text for element content.
func escapeHTML(s string) string {
	if !strings.ContainsAny(s, `&<>"'`) {
		return s
	}
	return textEscaper.Replace(s)
}

// escapeAttr escapes text for a double-quoted attribute value.
func escapeAttr(s string) string {
	if !strings.ContainsAny(s, "&<>\"'\n\r\t") {
		return s
	}
	return attrEscaper.Replace(s)
}

// escapeScriptJSON makes a JSON payload safe for embedding inside a script
// element. encoding/json escapes <, >, and & when marshaling, but payloads
// assembled by hand may still contain a closing tag sequence. Inside JSON,
// "<" only occurs within strings, where the unicode escape is equivalent.
func escapeScriptJSON(s string) string {
	return strings.ReplaceAll(s, "<", `\u003c`)
}

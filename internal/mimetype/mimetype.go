/*
Package mimetype normalizes Content-Type header values and answers the
questions the body accessors ask about them.

Example:

	mt := mimetype.Normalize("Application/JSON; charset=utf-8")
	// mt == "application/json"
	if mimetype.IsJSON(mt) {
		...
	}
*/
package mimetype

import "strings"

const (
	// HTML is the only mimetype decoded with the HTML-tolerant parser.
	HTML = "text/html"
	// PlainText is the mimetype robots.txt files are served with.
	PlainText = "text/plain"
)

// Normalize strips the parameters from a Content-Type value and returns
// the remaining media type trimmed and lower-cased.
func Normalize(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")

	return strings.ToLower(strings.TrimSpace(mt))
}

// IsXML reports whether mt names any XML flavour, e.g. text/xml or application/atom+xml.
func IsXML(mt string) bool {
	return strings.Contains(mt, "xml")
}

// IsMarkup reports whether mt is HTML or XML.
func IsMarkup(mt string) bool {
	return strings.Contains(mt, "html") || IsXML(mt)
}

// IsHTML reports whether mt is exactly text/html.
func IsHTML(mt string) bool {
	return mt == HTML
}

// IsJSON reports whether mt names a JSON payload, including +json suffixes.
func IsJSON(mt string) bool {
	return strings.Contains(mt, "json")
}

// IsPlainText reports whether mt is exactly text/plain.
func IsPlainText(mt string) bool {
	return mt == PlainText
}

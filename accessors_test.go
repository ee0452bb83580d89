/*
Copyright 2024 Henri Remonen

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package testresponse

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingJSON records how often it is asked to decode.
type countingJSON struct {
	calls int
}

func (c *countingJSON) Unmarshal(body []byte, v any) error {
	c.calls++

	return json.Unmarshal(body, v)
}

// flakyJSON fails until fail reaches zero.
type flakyJSON struct {
	fail int
}

func (f *flakyJSON) Unmarshal(body []byte, v any) error {
	if f.fail > 0 {
		f.fail--
		return errors.New("temporarily broken")
	}

	return json.Unmarshal(body, v)
}

// xmlOnlyMarkup exposes only the generic XML entry point of goquery.
type xmlOnlyMarkup struct{}

func (xmlOnlyMarkup) ParseXML(body []byte) (*goquery.Document, error) {
	return GoqueryBackend{}.ParseXML(body)
}

func TestResponse_JSONScenario(t *testing.T) {
	res := newTestResponse(t, "application/json; charset=utf-8", `{"a": 1}`)

	assert.Equal(t, "application/json", res.Mimetype())

	v, err := res.JSON()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, v)

	_, err = res.XML()
	assert.ErrorIs(t, err, ErrNotApplicable)
}

func TestResponse_JSONMatchesDirectDecode(t *testing.T) {
	body := `{"name": "grawlr", "tags": ["a", "b"], "n": null, "ok": true, "nested": {"x": 1.5}}`
	res := newTestResponse(t, "application/problem+json", body)

	var want any
	require.NoError(t, json.Unmarshal([]byte(body), &want))

	got, err := res.JSON()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResponse_JSONIsCached(t *testing.T) {
	backend := &countingJSON{}
	reg := NewRegistry()
	reg.RegisterJSON(BackendSonic, backend)

	res := newTestResponse(t, "application/json", `{"a": {"b": 2}}`, WithRegistry(reg))

	first, err := res.JSON()
	require.NoError(t, err)

	second, err := res.JSON()
	require.NoError(t, err)

	assert.Equal(t, 1, backend.calls)
	assert.Equal(t, reflect.ValueOf(first).Pointer(), reflect.ValueOf(second).Pointer())
}

func TestResponse_JSONNullIsCached(t *testing.T) {
	backend := &countingJSON{}
	reg := NewRegistry()
	reg.RegisterJSON(BackendSonic, backend)

	res := newTestResponse(t, "application/json", `null`, WithRegistry(reg))

	for i := 0; i < 2; i++ {
		v, err := res.JSON()
		require.NoError(t, err)
		assert.Nil(t, v)
	}

	assert.Equal(t, 1, backend.calls)
}

func TestResponse_JSONNotApplicableNeverDecodes(t *testing.T) {
	backend := &countingJSON{}
	reg := NewRegistry()
	reg.RegisterJSON(BackendSonic, backend)

	for _, ct := range []string{"text/html", "text/xml", "text/plain", "application/octet-stream"} {
		res := newTestResponse(t, ct, `{"a": 1}`, WithRegistry(reg))

		_, err := res.JSON()
		assert.ErrorIs(t, err, ErrNotApplicable)

		var unsupported *UnsupportedContentTypeError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, AccessorJSON, unsupported.Accessor)
		assert.Equal(t, ct, unsupported.Mimetype)
		assert.Contains(t, err.Error(), "not a JSON response")
	}

	assert.Equal(t, 0, backend.calls)
}

func TestResponse_JSONMalformed(t *testing.T) {
	res := newTestResponse(t, "application/json", `{"a": `)

	_, err := res.JSON()
	assert.ErrorIs(t, err, ErrDecode)
	assert.NotErrorIs(t, err, ErrNotApplicable)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, BackendSonic, decodeErr.Backend)
	assert.Error(t, decodeErr.Unwrap())
}

func TestResponse_JSONDependencyMissing(t *testing.T) {
	reg := NewRegistry()
	res := newTestResponse(t, "application/json", `{"a": 1}`, WithRegistry(reg))

	_, err := res.JSON()
	assert.ErrorIs(t, err, ErrDependencyMissing)
	assert.NotErrorIs(t, err, ErrNotApplicable)

	var missing *DependencyMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, KindJSON, missing.Kind)
	assert.Equal(t, []string{BackendSonic}, missing.Candidates)

	// The failure is not cached: fixing the environment fixes the accessor.
	reg.RegisterJSON(BackendSonic, SonicBackend{})

	v, err := res.JSON()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": float64(1)}, v)
}

func TestResponse_JSONFailureIsRetried(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterJSON(BackendSonic, &flakyJSON{fail: 1})

	res := newTestResponse(t, "application/json", `[true]`, WithRegistry(reg))

	_, err := res.JSON()
	assert.ErrorIs(t, err, ErrDecode)

	v, err := res.JSON()
	require.NoError(t, err)
	assert.Equal(t, []any{true}, v)
}

func TestResponse_DecodeJSON(t *testing.T) {
	res := newTestResponse(t, "application/json", `{"message": "Hello Matt"}`)

	var out struct {
		Message string `json:"message"`
	}
	require.NoError(t, res.DecodeJSON(&out))
	assert.Equal(t, "Hello Matt", out.Message)

	res = newTestResponse(t, "text/plain", `{"message": "Hello Matt"}`)
	assert.ErrorIs(t, res.DecodeJSON(&out), ErrNotApplicable)
}

func TestResponse_XMLScenario(t *testing.T) {
	res := newTestResponse(t, "text/xml", `<a><b/></a>`)

	root, err := res.XML()
	require.NoError(t, err)

	assert.Equal(t, "a", root.Tag)
	children := root.ChildElements()
	require.Len(t, children, 1)
	assert.Equal(t, "b", children[0].Tag)

	again, err := res.XML()
	require.NoError(t, err)
	assert.Same(t, root, again)
}

func TestResponse_XMLRoundTrip(t *testing.T) {
	body := `<root><item id="1">x</item><item id="2"/></root>`
	res := newTestResponse(t, "application/xml", body)

	root, err := res.XML()
	require.NoError(t, err)

	doc := etree.NewDocument()
	doc.SetRoot(root.Copy())
	out, err := doc.WriteToString()
	require.NoError(t, err)

	reparsed := etree.NewDocument()
	require.NoError(t, reparsed.ReadFromString(out))

	items := reparsed.Root().SelectElements("item")
	require.Len(t, items, 2)
	assert.Equal(t, "root", reparsed.Root().Tag)
	assert.Equal(t, "1", items[0].SelectAttrValue("id", ""))
	assert.Equal(t, "x", items[0].Text())
	assert.Equal(t, "2", items[1].SelectAttrValue("id", ""))
	assert.Empty(t, items[1].ChildElements())
}

func TestResponse_XMLNotApplicable(t *testing.T) {
	res := newTestResponse(t, "text/html", `<a><b/></a>`)

	_, err := res.XML()
	assert.ErrorIs(t, err, ErrNotApplicable)
	assert.EqualError(t, err, "xml: not a XML response (Content-Type: text/html)")
}

func TestResponse_XMLMalformed(t *testing.T) {
	res := newTestResponse(t, "text/xml", `<a b=c></a>`)

	_, err := res.XML()
	assert.ErrorIs(t, err, ErrDecode)

	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, BackendEtree, decodeErr.Backend)
	assert.Nil(t, res.xmlRoot)
}

func TestResponse_XMLFallsBackToEncodingXML(t *testing.T) {
	reg := NewDefaultRegistry()
	reg.Unregister(KindXML, BackendEtree)

	res := newTestResponse(t, "text/xml", `<a x="1"><b>text</b><!-- c --><b/></a>`, WithRegistry(reg))

	root, err := res.XML()
	require.NoError(t, err)

	assert.Equal(t, BackendEncodingXML, reg.Resolve(KindXML).Name)
	assert.Equal(t, "a", root.Tag)
	assert.Equal(t, "1", root.SelectAttrValue("x", ""))
	children := root.SelectElements("b")
	require.Len(t, children, 2)
	assert.Equal(t, "text", children[0].Text())

	res = newTestResponse(t, "text/xml", `<a><b></a>`, WithRegistry(reg))
	_, err = res.XML()

	var syntaxErr *xml.SyntaxError
	assert.ErrorAs(t, err, &syntaxErr)
}

func TestResponse_XMLFallbackKeepsNamespacePrefixes(t *testing.T) {
	body := `<a xmlns:ns="urn:x" xml:lang="en"><ns:b ns:id="1"><ns:c/></ns:b></a>`

	fallback := NewDefaultRegistry()
	fallback.Unregister(KindXML, BackendEtree)

	write := func(reg *Registry) string {
		res := newTestResponse(t, "application/xml", body, WithRegistry(reg))
		root, err := res.XML()
		require.NoError(t, err)

		out, err := etree.NewDocumentWithRoot(root.Copy()).WriteToString()
		require.NoError(t, err)

		return out
	}

	assert.Equal(t, body, write(NewDefaultRegistry()))
	assert.Equal(t, body, write(fallback))

	res := newTestResponse(t, "application/xml", body, WithRegistry(fallback))
	root, err := res.XML()
	require.NoError(t, err)

	b := root.SelectElement("ns:b")
	require.NotNil(t, b)
	assert.Equal(t, "ns", b.Space)
	assert.Equal(t, "urn:x", b.NamespaceURI())
	assert.Equal(t, "1", b.SelectAttrValue("ns:id", ""))
	assert.Equal(t, "en", root.SelectAttrValue("xml:lang", ""))
}

func TestResponse_XMLRejectsContentOutsideRoot(t *testing.T) {
	fallback := NewDefaultRegistry()
	fallback.Unregister(KindXML, BackendEtree)

	registries := map[string]*Registry{
		BackendEtree:       NewDefaultRegistry(),
		BackendEncodingXML: fallback,
	}

	for name, reg := range registries {
		for _, body := range []string{`<a/><b/>`, `<a/>junk`, `junk<a/>`} {
			res := newTestResponse(t, "text/xml", body, WithRegistry(reg))

			_, err := res.XML()
			assert.ErrorIs(t, err, ErrDecode, "%s: %s", name, body)

			var syntaxErr *xml.SyntaxError
			assert.ErrorAs(t, err, &syntaxErr, "%s: %s", name, body)

			_, err = res.Document()
			assert.ErrorIs(t, err, ErrDecode, "document: %s", body)
		}

		res := newTestResponse(t, "text/xml", "<?xml version=\"1.0\"?>\n<a/>\n", WithRegistry(reg))
		_, err := res.XML()
		assert.NoError(t, err, name)

		_, err = res.Document()
		assert.NoError(t, err, name)
	}
}

func TestResponse_XMLDependencyMissing(t *testing.T) {
	res := newTestResponse(t, "text/xml", `<a/>`, WithRegistry(NewRegistry()))

	_, err := res.XML()
	assert.ErrorIs(t, err, ErrDependencyMissing)

	var missing *DependencyMissingError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{BackendEtree, BackendEncodingXML}, missing.Candidates)
}

func TestResponse_DocumentHTMLIsTolerant(t *testing.T) {
	body := `<html><body><p>one<p>two<div><a href="/x">unclosed`
	res := newTestResponse(t, "text/html; charset=utf-8", body)

	doc, err := res.Document()
	require.NoError(t, err)

	assert.Equal(t, 2, doc.Find("p").Length())
	assert.Equal(t, "unclosed", doc.Find("a").Text())

	again, err := res.Document()
	require.NoError(t, err)
	assert.Same(t, doc, again)

	// The same body is rejected by the XML entry point.
	xmlRes := newTestResponse(t, "application/xhtml+xml", body)
	_, err = xmlRes.Document()
	assert.ErrorIs(t, err, ErrDecode)
}

func TestResponse_DocumentXML(t *testing.T) {
	body := `<?xml version="1.0"?>
<feed>
	<entry id="1"><title>First</title></entry>
	<entry id="2"><title>Second</title></entry>
</feed>`
	res := newTestResponse(t, "application/atom+xml", body)

	doc, err := res.Document()
	require.NoError(t, err)

	assert.Equal(t, 2, doc.Find("entry").Length())
	assert.Equal(t, "First", doc.Find(`entry[id="1"] title`).Text())
	assert.Equal(t, "feed", goquery.NodeName(doc.Children()))
}

func TestResponse_DocumentWithoutHTMLParser(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterMarkup(BackendGoquery, xmlOnlyMarkup{})

	res := newTestResponse(t, "text/html", `<p>unclosed`, WithRegistry(reg))
	_, err := res.Document()
	assert.ErrorIs(t, err, ErrDecode)

	res = newTestResponse(t, "text/html", `<div><p>closed</p></div>`, WithRegistry(reg))
	doc, err := res.Document()
	require.NoError(t, err)
	assert.Equal(t, "closed", doc.Find("div p").Text())
}

func TestResponse_DocumentNotApplicable(t *testing.T) {
	res := newTestResponse(t, "application/json", `{}`)

	_, err := res.Document()
	assert.ErrorIs(t, err, ErrNotApplicable)
	assert.Contains(t, err.Error(), "not an HTML/XML response")
}

func TestResponse_DocumentDependencyMissing(t *testing.T) {
	res := newTestResponse(t, "text/html", `<p>hi</p>`, WithRegistry(NewRegistry()))

	_, err := res.Document()
	assert.ErrorIs(t, err, ErrDependencyMissing)
}

func TestResponse_AccessorsAreIndependent(t *testing.T) {
	res := newTestResponse(t, "application/xml", `<a><b/></a>`)

	_, err := res.XML()
	require.NoError(t, err)
	assert.Nil(t, res.document)

	_, err = res.Document()
	require.NoError(t, err)
	assert.NotNil(t, res.xmlRoot)
	assert.False(t, res.jsonSet)
}

func TestResponse_Robots(t *testing.T) {
	res := newTestResponse(t, "text/plain; charset=utf-8", "User-agent: *\nDisallow: /private")

	robots, err := res.Robots()
	require.NoError(t, err)

	assert.False(t, robots.TestAgent("/private", "Grawlr"))
	assert.True(t, robots.TestAgent("/public", "Grawlr"))

	again, err := res.Robots()
	require.NoError(t, err)
	assert.Same(t, robots, again)
}

func TestResponse_RobotsStatus(t *testing.T) {
	res, err := New(http.StatusInternalServerError, header("text/plain"), nil)
	require.NoError(t, err)

	robots, err := res.Robots()
	require.NoError(t, err)
	assert.False(t, robots.TestAgent("/", "Grawlr"))
}

func TestResponse_RobotsNotApplicable(t *testing.T) {
	res := newTestResponse(t, "text/html", "User-agent: *")

	_, err := res.Robots()
	assert.ErrorIs(t, err, ErrNotApplicable)
}

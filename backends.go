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
	"bytes"
	"encoding/xml"
	"errors"
	"io"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
	"github.com/bytedance/sonic"
	"golang.org/x/net/html"
)

// Names of the built-in backends.
const (
	BackendEtree       = "etree"
	BackendEncodingXML = "encoding/xml"
	BackendGoquery     = "goquery"
	BackendSonic       = "sonic"
)

// ErrNoRootElement is returned by the XML backends for a body without any element.
var ErrNoRootElement = errors.New("document has no root element")

const xmlNamespace = "http://www.w3.org/XML/1998/namespace"

// EtreeBackend parses XML with github.com/beevik/etree.
type EtreeBackend struct{}

func (EtreeBackend) ParseXML(body []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, err
	}

	// etree stops caring after the first root; the document must hold
	// exactly one element and nothing but whitespace beside it.
	roots := 0
	for _, tok := range doc.Child {
		switch t := tok.(type) {
		case *etree.Element:
			roots++
		case *etree.CharData:
			if !t.IsWhitespace() {
				return nil, errJunkAfterRoot(0)
			}
		}
	}

	switch {
	case roots == 0:
		return nil, ErrNoRootElement
	case roots > 1:
		return nil, errJunkAfterRoot(0)
	}

	return doc.Root(), nil
}

// EncodingXMLBackend walks the body with the strict encoding/xml tokenizer
// and builds an etree element tree from the tokens.
type EncodingXMLBackend struct{}

func (EncodingXMLBackend) ParseXML(body []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	stack := []*etree.Element{}
	scopes := []map[string]string{}

	err := walkXML(body, func(tok xml.Token) {
		var top *etree.Element
		if len(stack) > 0 {
			top = stack[len(stack)-1]
		}

		switch t := tok.(type) {
		case xml.StartElement:
			parent := &doc.Element
			if top != nil {
				parent = top
			}

			scopes = append(scopes, declaredPrefixes(t.Attr))

			el := parent.CreateElement(qualify(prefixFor(scopes, t.Name.Space), t.Name.Local))
			for _, a := range t.Attr {
				el.CreateAttr(qualify(attrPrefix(scopes, a.Name), a.Name.Local), a.Value)
			}

			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
			scopes = scopes[:len(scopes)-1]
		case xml.CharData:
			if top != nil {
				top.CreateText(string(t))
			}
		case xml.Comment:
			if top != nil {
				top.CreateComment(string(t))
			}
		}
	})
	if err != nil {
		return nil, err
	}

	root := doc.Root()
	if root == nil {
		return nil, ErrNoRootElement
	}

	return root, nil
}

// declaredPrefixes maps namespace URLs to the prefixes the xmlns
// attributes of one element bind them to. The default namespace maps to "".
func declaredPrefixes(attrs []xml.Attr) map[string]string {
	scope := map[string]string{}

	for _, a := range attrs {
		switch {
		case a.Name.Space == "xmlns":
			scope[a.Value] = a.Name.Local
		case a.Name.Space == "" && a.Name.Local == "xmlns":
			scope[a.Value] = ""
		}
	}

	return scope
}

// prefixFor finds the innermost prefix bound to space. encoding/xml leaves
// undeclared prefixes unresolved, so an unknown space is its own prefix.
func prefixFor(scopes []map[string]string, space string) string {
	if space == "" {
		return ""
	}

	if space == xmlNamespace {
		return "xml"
	}

	for i := len(scopes) - 1; i >= 0; i-- {
		if prefix, ok := scopes[i][space]; ok {
			return prefix
		}
	}

	return space
}

func attrPrefix(scopes []map[string]string, name xml.Name) string {
	if name.Space == "xmlns" {
		return "xmlns"
	}

	return prefixFor(scopes, name.Space)
}

func qualify(prefix, local string) string {
	if prefix == "" {
		return local
	}

	return prefix + ":" + local
}

// GoqueryBackend builds goquery documents. HTML goes through the tolerant
// golang.org/x/net/html parser; XML is tokenized strictly and converted
// into an html.Node tree so it can be queried with the same selectors.
type GoqueryBackend struct{}

func (GoqueryBackend) ParseHTML(body []byte) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(bytes.NewReader(body))
}

func (GoqueryBackend) ParseXML(body []byte) (*goquery.Document, error) {
	root := &html.Node{Type: html.DocumentNode}
	stack := []*html.Node{root}
	hasElement := false

	err := walkXML(body, func(tok xml.Token) {
		top := stack[len(stack)-1]

		switch t := tok.(type) {
		case xml.StartElement:
			n := &html.Node{
				Type:      html.ElementNode,
				Data:      t.Name.Local,
				Namespace: t.Name.Space,
			}
			for _, a := range t.Attr {
				n.Attr = append(n.Attr, html.Attribute{
					Namespace: a.Name.Space,
					Key:       a.Name.Local,
					Val:       a.Value,
				})
			}

			top.AppendChild(n)
			stack = append(stack, n)
			hasElement = true
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if top != root {
				top.AppendChild(&html.Node{Type: html.TextNode, Data: string(t)})
			}
		case xml.Comment:
			top.AppendChild(&html.Node{Type: html.CommentNode, Data: string(t)})
		}
	})
	if err != nil {
		return nil, err
	}

	if !hasElement {
		return nil, ErrNoRootElement
	}

	return goquery.NewDocumentFromNode(root), nil
}

// SonicBackend decodes JSON with github.com/bytedance/sonic using the
// encoding/json compatible configuration.
type SonicBackend struct{}

func (SonicBackend) Unmarshal(body []byte, v any) error {
	return sonic.ConfigStd.Unmarshal(body, v)
}

// walkXML feeds every token of body to fn. The decoder is strict, so
// mismatched or unclosed tags surface as *xml.SyntaxError. A second root
// element or text outside the root is rejected the same way.
func walkXML(body []byte, fn func(tok xml.Token)) error {
	dec := xml.NewDecoder(bytes.NewReader(body))
	depth := 0
	seenRoot := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 && seenRoot {
				line, _ := dec.InputPos()
				return errJunkAfterRoot(line)
			}

			depth++
			seenRoot = true
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				line, _ := dec.InputPos()
				return errJunkAfterRoot(line)
			}
		}

		fn(tok)
	}
}

func errJunkAfterRoot(line int) error {
	return &xml.SyntaxError{Msg: "junk after document element", Line: line}
}

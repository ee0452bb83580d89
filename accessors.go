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
	"github.com/HRemonen/testresponse/internal/mimetype"
	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

// Accessor names used in errors and log fields.
const (
	AccessorXML      = "xml"
	AccessorDocument = "document"
	AccessorJSON     = "json"
	AccessorRobots   = "robots"
)

// XML returns the root element of the body parsed as XML. The mimetype
// must contain "xml".
func (r *Response) XML() (*etree.Element, error) {
	if r.xmlRoot != nil {
		return r.xmlRoot, nil
	}

	if !mimetype.IsXML(r.mimetype) {
		return nil, r.notApplicable(AccessorXML, "not a XML response")
	}

	res, err := r.resolve(AccessorXML, KindXML)
	if err != nil {
		return nil, err
	}

	root, err := res.Backend.(XMLBackend).ParseXML(r.body)
	if err != nil {
		return nil, r.decodeFailed(AccessorXML, res.Name, err)
	}

	r.xmlRoot = root

	return root, nil
}

// Document returns the body as a goquery document. The mimetype must
// contain "html" or "xml". A text/html body goes through the backend's
// HTML-tolerant parser when it has one; everything else is parsed as XML.
func (r *Response) Document() (*goquery.Document, error) {
	if r.document != nil {
		return r.document, nil
	}

	if !mimetype.IsMarkup(r.mimetype) {
		return nil, r.notApplicable(AccessorDocument, "not an HTML/XML response")
	}

	res, err := r.resolve(AccessorDocument, KindMarkup)
	if err != nil {
		return nil, err
	}

	backend := res.Backend.(MarkupBackend)

	parse := backend.ParseXML
	if hp, ok := backend.(HTMLParser); ok && mimetype.IsHTML(r.mimetype) {
		parse = hp.ParseHTML
	}

	doc, err := parse(r.body)
	if err != nil {
		return nil, r.decodeFailed(AccessorDocument, res.Name, err)
	}

	r.document = doc

	return doc, nil
}

// JSON returns the body decoded as a JSON value: map[string]any, []any,
// string, float64, bool or nil. The mimetype must contain "json".
func (r *Response) JSON() (any, error) {
	if r.jsonSet {
		return r.jsonValue, nil
	}

	var v any
	if err := r.DecodeJSON(&v); err != nil {
		return nil, err
	}

	r.jsonValue = v
	r.jsonSet = true

	return v, nil
}

// DecodeJSON decodes the body into v under the same conditions as JSON.
// The result is not cached.
func (r *Response) DecodeJSON(v any) error {
	if !mimetype.IsJSON(r.mimetype) {
		return r.notApplicable(AccessorJSON, "not a JSON response")
	}

	res, err := r.resolve(AccessorJSON, KindJSON)
	if err != nil {
		return err
	}

	if err := res.Backend.(JSONBackend).Unmarshal(r.body, v); err != nil {
		return r.decodeFailed(AccessorJSON, res.Name, err)
	}

	return nil
}

// Robots returns the body parsed as a robots.txt file. The mimetype must be
// text/plain. The status code is taken into account the way crawlers do:
// 4xx allows everything and 5xx disallows everything.
func (r *Response) Robots() (*robotstxt.RobotsData, error) {
	if r.robots != nil {
		return r.robots, nil
	}

	if !mimetype.IsPlainText(r.mimetype) {
		return nil, r.notApplicable(AccessorRobots, "not a robots.txt response")
	}

	robots, err := robotstxt.FromStatusAndBytes(r.StatusCode, r.body)
	if err != nil {
		return nil, r.decodeFailed(AccessorRobots, "robotstxt", err)
	}

	r.robots = robots

	return robots, nil
}

func (r *Response) resolve(accessor string, kind Kind) (Resolution, error) {
	res := r.registry.Resolve(kind)
	if !res.Available() {
		return res, &DependencyMissingError{
			Accessor:   accessor,
			Kind:       kind,
			Candidates: res.Candidates,
		}
	}

	return res, nil
}

func (r *Response) notApplicable(accessor, reason string) error {
	return &UnsupportedContentTypeError{
		Accessor: accessor,
		Mimetype: r.mimetype,
		Reason:   reason,
	}
}

func (r *Response) decodeFailed(accessor, backend string, err error) error {
	r.logger.WithFields(logrus.Fields{
		"accessor": accessor,
		"backend":  backend,
		"mimetype": r.mimetype,
	}).WithError(err).Debug("error decoding response body")

	return &DecodeError{Accessor: accessor, Backend: backend, Err: err}
}

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
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/HRemonen/testresponse/internal/mimetype"
	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
)

// ResponseOptions is a type for functional options that can be used to configure a Response.
type ResponseOptions func(r *Response)

// Response is an HTTP response captured for assertions in tests. On top of
// the status, headers and raw body it offers accessors that decode the body
// according to its Content-Type. Each accessor decodes at most once and
// returns the cached value afterwards; a failed decode is not cached.
//
// A Response is meant to be owned by a single test goroutine and is not
// safe for concurrent use.
type Response struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int
	// Header holds the response headers.
	Header http.Header
	// Request is the request that produced the response, if known.
	Request *http.Request

	contentType string
	mimetype    string
	body        []byte

	registry *Registry
	logger   logrus.FieldLogger

	xmlRoot   *etree.Element
	document  *goquery.Document
	jsonValue any
	jsonSet   bool
	robots    *robotstxt.RobotsData
}

// WithRegistry sets the Registry the accessors negotiate their backends with.
func WithRegistry(registry *Registry) ResponseOptions {
	return func(r *Response) {
		r.registry = registry
	}
}

// WithLogger sets the logger used to report decode failures.
func WithLogger(logger logrus.FieldLogger) ResponseOptions {
	return func(r *Response) {
		r.logger = logger
	}
}

// WithRequest attaches the request that produced the response.
func WithRequest(req *http.Request) ResponseOptions {
	return func(r *Response) {
		r.Request = req
	}
}

// New creates a Response from its parts. The Content-Type header is
// normalized once here; a response without one is rejected with
// ErrMissingContentType. The body is copied and must be treated as
// immutable from here on.
func New(statusCode int, header http.Header, body []byte, options ...ResponseOptions) (*Response, error) {
	contentType, ok := lookupContentType(header)
	if !ok {
		return nil, ErrMissingContentType
	}

	r := &Response{
		StatusCode:  statusCode,
		Header:      header,
		contentType: contentType,
		mimetype:    mimetype.Normalize(contentType),
		body:        append([]byte(nil), body...),
		logger:      logrus.StandardLogger(),
	}

	for _, option := range options {
		option(r)
	}

	if r.registry == nil {
		r.registry = DefaultRegistry()
	}

	return r, nil
}

// FromHTTP reads and closes the body of res and wraps it in a Response.
func FromHTTP(res *http.Response, options ...ResponseOptions) (*Response, error) {
	defer func() {
		if err := res.Body.Close(); err != nil {
			logrus.WithError(err).Warn("error closing response body")
		}
	}()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	options = append([]ResponseOptions{WithRequest(res.Request)}, options...)

	return New(res.StatusCode, res.Header, b, options...)
}

// FromRecorder wraps the result captured by an httptest.ResponseRecorder.
func FromRecorder(w *httptest.ResponseRecorder, options ...ResponseOptions) (*Response, error) {
	return FromHTTP(w.Result(), options...)
}

// ContentType returns the raw Content-Type header value.
func (r *Response) ContentType() string {
	return r.contentType
}

// Mimetype returns the Content-Type without parameters, trimmed and lower-cased.
func (r *Response) Mimetype() string {
	return r.mimetype
}

// Body returns the raw response body.
func (r *Response) Body() []byte {
	return r.body
}

// Text returns the raw response body as a string.
func (r *Response) Text() string {
	return string(r.body)
}

// lookupContentType distinguishes a missing Content-Type header from an
// empty one. Keys that were set without canonicalization are matched too.
func lookupContentType(header http.Header) (string, bool) {
	if values, ok := header["Content-Type"]; ok && len(values) > 0 {
		return values[0], true
	}

	for key, values := range header {
		if strings.EqualFold(key, "Content-Type") && len(values) > 0 {
			return values[0], true
		}
	}

	return "", false
}

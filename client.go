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
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus"
)

// Options is a type for functional options that can be used to configure a Client.
type Options func(c *Client)

// ReqMiddleware is a type for request middlewares that can be used to modify a request before it is served.
type ReqMiddleware func(req *http.Request)

// ResMiddleware is a type for response middlewares that are run on every Response the Client returns.
type ResMiddleware func(res *Response)

// Client sends requests straight to an http.Handler and returns the
// recorded result as a Response. No network is involved.
type Client struct {
	// Handler is the handler under test.
	Handler http.Handler
	// BaseURL is prefixed to every request path. Can be set with the WithBaseURL functional option.
	BaseURL string
	// Header holds headers added to every request. Can be set with the WithHeader functional option.
	Header http.Header
	// Jar stores cookies set by the handler and sends them back on later requests.
	Jar http.CookieJar
	// Context is the context attached to every request. Can be set with the WithContext functional option.
	Context context.Context
	// history records every request sent. Can be set with the WithHistory functional option.
	history History
	// responseOptions are applied to every Response built by the Client.
	responseOptions []ResponseOptions
	// requestMiddlewares is a list of request middlewares applied to each request. Can be added with OnRequest.
	requestMiddlewares []ReqMiddleware
	// responseMiddlewares is a list of response middlewares applied to each response. Can be added with OnResponse.
	responseMiddlewares []ResMiddleware
	// htmlMiddlewares is a list of callbacks run on Document elements matching a selector. Can be added with HtmlDo.
	htmlMiddlewares []HtmlMiddleware
	logger          logrus.FieldLogger
	mu              sync.RWMutex
}

// NewClient creates a new Client serving requests with handler.
func NewClient(handler http.Handler, options ...Options) *Client {
	jar, _ := cookiejar.New(nil)

	c := &Client{
		Handler:             handler,
		BaseURL:             "http://localhost",
		Header:              http.Header{},
		Jar:                 jar,
		Context:             context.Background(),
		history:             NewInMemoryHistory(),
		requestMiddlewares:  make([]ReqMiddleware, 0, 4),
		responseMiddlewares: make([]ResMiddleware, 0, 4),
		htmlMiddlewares:     make([]HtmlMiddleware, 0, 4),
		logger:              logrus.StandardLogger(),
	}

	for _, option := range options {
		option(c)
	}

	return c
}

// WithBaseURL is a functional option that sets the base URL for the Client.
func WithBaseURL(baseURL string) Options {
	return func(c *Client) {
		c.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHeader is a functional option that adds a default request header.
func WithHeader(key, value string) Options {
	return func(c *Client) {
		c.Header.Add(key, value)
	}
}

// WithContext is a functional option that sets the context for the Client's requests.
func WithContext(ctx context.Context) Options {
	return func(c *Client) {
		c.Context = ctx
	}
}

// WithHistory is a functional option that sets the History for the Client.
func WithHistory(history History) Options {
	return func(c *Client) {
		c.history = history
	}
}

// WithClientLogger is a functional option that sets the logger for the
// Client and for the Responses it builds.
func WithClientLogger(logger logrus.FieldLogger) Options {
	return func(c *Client) {
		c.logger = logger
		c.responseOptions = append(c.responseOptions, WithLogger(logger))
	}
}

// WithResponseOptions is a functional option that applies options to every Response the Client builds.
func WithResponseOptions(options ...ResponseOptions) Options {
	return func(c *Client) {
		c.responseOptions = append(c.responseOptions, options...)
	}
}

// OnRequest adds a request middleware to the Client.
func (c *Client) OnRequest(mw ReqMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requestMiddlewares = append(c.requestMiddlewares, mw)
}

// OnResponse adds a response middleware to the Client.
func (c *Client) OnResponse(mw ResMiddleware) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.responseMiddlewares = append(c.responseMiddlewares, mw)
}

// HtmlDo adds a callback that is run on every element of a response's
// Document matching the given goquery selector. Responses without a markup
// Content-Type are skipped.
//
// SEE GoQuery documentation for more information on selectors: https://pkg.go.dev/github.com/PuerkitoBio/goquery
func (c *Client) HtmlDo(gqSelector string, fn HtmlCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.htmlMiddlewares = append(c.htmlMiddlewares, HtmlMiddleware{
		Selector: gqSelector,
		Function: fn,
	})
}

// History returns the History the Client records requests in.
func (c *Client) History() History {
	return c.history
}

func (c *Client) Get(path string) (*Response, error) {
	return c.Do(http.MethodGet, path, nil, nil)
}

func (c *Client) Post(path string, body any) (*Response, error) {
	return c.Do(http.MethodPost, path, nil, body)
}

func (c *Client) Put(path string, body any) (*Response, error) {
	return c.Do(http.MethodPut, path, nil, body)
}

func (c *Client) Patch(path string, body any) (*Response, error) {
	return c.Do(http.MethodPatch, path, nil, body)
}

func (c *Client) Delete(path string) (*Response, error) {
	return c.Do(http.MethodDelete, path, nil, nil)
}

// Do serves a single request. body may be nil, []byte, string or an
// io.Reader; any other value is encoded as JSON and sent with an
// application/json Content-Type unless header sets one.
func (c *Client) Do(method, path string, header http.Header, body any) (*Response, error) {
	r, isJSON, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(c.Context, method, c.BaseURL+path, r)
	if err != nil {
		return nil, err
	}

	for key, values := range c.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	for key, values := range header {
		req.Header.Del(key)
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	if isJSON && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.Jar != nil {
		for _, cookie := range c.Jar.Cookies(req.URL) {
			req.AddCookie(cookie)
		}
	}

	c.handleOnRequest(req)

	c.history.Record(req.Method, req.URL.String())

	w := httptest.NewRecorder()
	c.Handler.ServeHTTP(w, req)

	result := w.Result()
	result.Request = req

	if c.Jar != nil {
		c.Jar.SetCookies(req.URL, result.Cookies())
	}

	c.logger.WithFields(logrus.Fields{
		"method": req.Method,
		"url":    req.URL.String(),
		"status": result.StatusCode,
	}).Debug("served test request")

	res, err := FromHTTP(result, c.responseOptions...)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}

	c.handleOnResponse(res)
	c.handleHtmlDo(res)

	return res, nil
}

func (c *Client) handleOnRequest(req *http.Request) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, m := range c.requestMiddlewares {
		m(req)
	}
}

func (c *Client) handleOnResponse(res *Response) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, m := range c.responseMiddlewares {
		m(res)
	}
}

func (c *Client) handleHtmlDo(res *Response) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.htmlMiddlewares) == 0 {
		return
	}

	doc, err := res.Document()
	if err != nil {
		if !errors.Is(err, ErrNotApplicable) {
			c.logger.WithError(err).Debug("skipping html callbacks")
		}

		return
	}

	for _, m := range c.htmlMiddlewares {
		doc.Find(m.Selector).Each(func(_ int, s *goquery.Selection) {
			for _, n := range s.Nodes {
				el := &HtmlElement{
					attributes: n.Attr,
					Text:       s.Text(),
					Request:    res.Request,
					Response:   res,
					Selection:  s,
				}

				m.Function(el)
			}
		})
	}
}

func encodeBody(body any) (io.Reader, bool, error) {
	switch v := body.(type) {
	case nil:
		return http.NoBody, false, nil
	case []byte:
		return bytes.NewReader(v), false, nil
	case string:
		return strings.NewReader(v), false, nil
	case io.Reader:
		return v, false, nil
	default:
		data, err := sonic.ConfigStd.Marshal(v)
		if err != nil {
			return nil, false, err
		}

		return bytes.NewReader(data), true, nil
	}
}

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
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

type (
	// HtmlCallback is run on every element matching the selector of an HtmlDo registration.
	HtmlCallback   func(el *HtmlElement)
	HtmlMiddleware struct {
		Selector string
		Function HtmlCallback
	}
)

// HtmlElement is a single element matched in a Response's Document.
type HtmlElement struct {
	// Text is the combined text of the element and its descendants.
	Text string
	// Request is the request that produced Response.
	Request *http.Request
	// Response is the Response the element was found in.
	Response *Response
	// Selection wraps the element for further goquery traversal.
	Selection  *goquery.Selection
	attributes []html.Attribute
}

// Attribute returns the value of the attribute named key, or "" when the
// element does not carry it.
func (e *HtmlElement) Attribute(key string) string {
	for _, a := range e.attributes {
		if a.Key == key {
			return a.Val
		}
	}

	return ""
}

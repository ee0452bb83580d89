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
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Links returns the href of every anchor in the document, in document
// order. Relative links are resolved against the request URL when the
// response knows its request, and dropped otherwise. Fragment-only links
// are skipped.
func (r *Response) Links() ([]string, error) {
	doc, err := r.Document()
	if err != nil {
		return nil, err
	}

	links := []string{}

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")

		if abs := r.absoluteURL(strings.TrimSpace(href)); abs != "" {
			links = append(links, abs)
		}
	})

	return links, nil
}

// absoluteURL returns the absolute form of link or "" when it cannot be formed.
func (r *Response) absoluteURL(link string) string {
	if link == "" || strings.HasPrefix(link, "#") {
		return ""
	}

	href, err := url.Parse(link)
	if err != nil {
		r.logger.WithError(err).WithField("href", link).Debug("error parsing href")
		return ""
	}

	if href.IsAbs() {
		return href.String()
	}

	if r.Request == nil || r.Request.URL == nil {
		return ""
	}

	return r.Request.URL.ResolveReference(href).String()
}

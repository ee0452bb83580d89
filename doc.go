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

/*
Package testresponse provides an HTTP response type for tests whose body
can be read as structured data instead of raw bytes.

A Response picks a decoder from its Content-Type:

	XML()      any mimetype containing "xml"          -> *etree.Element
	Document() any mimetype containing "html" or "xml" -> *goquery.Document
	JSON()     any mimetype containing "json"         -> any
	Robots()   text/plain                             -> *robotstxt.RobotsData

Each accessor decodes once and caches the result. Using an accessor on a
response outside its domain returns an error matching ErrNotApplicable, so
tests can fall back from one accessor to another:

	c := testresponse.NewClient(router)

	res, err := c.Get("/feed")
	if err != nil {
		t.Fatal(err)
	}

	v, err := res.JSON()
	if errors.Is(err, testresponse.ErrNotApplicable) {
		root, err := res.XML()
		...
	}

Decoder backends are negotiated through a Registry. DefaultRegistry
carries etree and encoding/xml for XML, goquery for markup and sonic for
JSON.
*/
package testresponse

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
	"fmt"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

// Kind identifies the family of decoder a backend belongs to.
type Kind string

const (
	KindXML    Kind = "xml"
	KindMarkup Kind = "markup"
	KindJSON   Kind = "json"
)

// XMLBackend parses a body into a minimal XML element tree.
type XMLBackend interface {
	ParseXML(body []byte) (*etree.Element, error)
}

// MarkupBackend parses a body into a queryable document. ParseXML is the
// generic entry point used for every markup type that is not text/html.
type MarkupBackend interface {
	ParseXML(body []byte) (*goquery.Document, error)
}

// HTMLParser is implemented by markup backends that understand HTML's
// looser grammar. Backends without it get text/html bodies through ParseXML.
type HTMLParser interface {
	ParseHTML(body []byte) (*goquery.Document, error)
}

// JSONBackend decodes a JSON body into v.
type JSONBackend interface {
	Unmarshal(body []byte, v any) error
}

// Resolution is the outcome of negotiating a backend for a Kind. It is
// either available, carrying the backend and its name, or unavailable,
// carrying the names that were tried.
type Resolution struct {
	Kind       Kind
	Name       string
	Backend    any
	Candidates []string
}

// Available reports whether a backend was found.
func (r Resolution) Available() bool {
	return r.Backend != nil
}

// Reason describes why the resolution is unavailable.
func (r Resolution) Reason() string {
	if r.Available() {
		return ""
	}

	return fmt.Sprintf("none of %v is registered for %s", r.Candidates, r.Kind)
}

// Registry holds the decoder backends known to the process together with
// the order in which they are tried. Resolutions are computed once per Kind
// and cached until the registry changes.
type Registry struct {
	// backends maps a Kind to its registered backends by name.
	backends map[Kind]map[string]any
	// preference is the ordered candidate list per Kind.
	preference map[Kind][]string
	// resolved caches the negotiated Resolution per Kind.
	resolved map[Kind]Resolution
	logger   logrus.FieldLogger
	mu       sync.RWMutex
}

// defaultPreference is the candidate order used by registries that have
// not been given one with WithPreference.
func defaultPreference() map[Kind][]string {
	return map[Kind][]string{
		KindXML:    {BackendEtree, BackendEncodingXML},
		KindMarkup: {BackendGoquery},
		KindJSON:   {BackendSonic},
	}
}

// RegistryOptions configure a Registry.
type RegistryOptions func(r *Registry)

// WithPreference sets the ordered candidate names for kind.
func WithPreference(kind Kind, names ...string) RegistryOptions {
	return func(r *Registry) {
		r.preference[kind] = append([]string(nil), names...)
	}
}

// WithRegistryLogger sets the logger used to report negotiation results.
func WithRegistryLogger(logger logrus.FieldLogger) RegistryOptions {
	return func(r *Registry) {
		r.logger = logger
	}
}

// NewRegistry creates an empty Registry. Use DefaultRegistry for one that
// carries the built-in backends.
func NewRegistry(options ...RegistryOptions) *Registry {
	r := &Registry{
		backends:   make(map[Kind]map[string]any),
		preference: defaultPreference(),
		resolved:   make(map[Kind]Resolution),
		logger:     logrus.StandardLogger(),
	}

	for _, option := range options {
		option(r)
	}

	return r
}

// NewDefaultRegistry creates a Registry with every built-in backend registered.
func NewDefaultRegistry(options ...RegistryOptions) *Registry {
	r := NewRegistry(options...)

	r.RegisterXML(BackendEtree, EtreeBackend{})
	r.RegisterXML(BackendEncodingXML, EncodingXMLBackend{})
	r.RegisterMarkup(BackendGoquery, GoqueryBackend{})
	r.RegisterJSON(BackendSonic, SonicBackend{})

	return r
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the process wide registry used by responses
// that were not given one explicitly.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewDefaultRegistry()
	})

	return defaultRegistry
}

// RegisterXML adds an XML tree backend under name, replacing any backend of the same name.
func (r *Registry) RegisterXML(name string, backend XMLBackend) {
	r.register(KindXML, name, backend)
}

// RegisterMarkup adds a rich markup backend under name.
func (r *Registry) RegisterMarkup(name string, backend MarkupBackend) {
	r.register(KindMarkup, name, backend)
}

// RegisterJSON adds a JSON backend under name.
func (r *Registry) RegisterJSON(name string, backend JSONBackend) {
	r.register(KindJSON, name, backend)
}

// Unregister removes the named backend of kind.
func (r *Registry) Unregister(kind Kind, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.backends[kind], name)
	delete(r.resolved, kind)
}

// SetPreference replaces the ordered candidate names for kind.
func (r *Registry) SetPreference(kind Kind, names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.preference[kind] = append([]string(nil), names...)
	delete(r.resolved, kind)
}

// Reset drops every cached Resolution.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resolved = make(map[Kind]Resolution)
}

func (r *Registry) register(kind Kind, name string, backend any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backends[kind] == nil {
		r.backends[kind] = make(map[string]any)
	}

	r.backends[kind][name] = backend
	delete(r.resolved, kind)
}

// Resolve negotiates the backend for kind: the first name of the preference
// list that has a registered backend wins.
func (r *Registry) Resolve(kind Kind) Resolution {
	r.mu.RLock()
	res, ok := r.resolved[kind]
	r.mu.RUnlock()

	if ok {
		return res
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.resolved[kind]; ok {
		return cached
	}

	candidates := append([]string(nil), r.preference[kind]...)
	res = Resolution{Kind: kind, Candidates: candidates}

	for _, name := range candidates {
		if backend, found := r.backends[kind][name]; found {
			res.Name = name
			res.Backend = backend
			break
		}
	}

	r.resolved[kind] = res

	log := r.logger.WithField("kind", kind)
	if res.Available() {
		log.WithField("backend", res.Name).Debug("resolved decoder backend")
	} else {
		log.Debug(res.Reason())
	}

	return res
}

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

import "sync"

// History records the requests a Client has sent.
type History interface {
	// Record stores a request with the given method and URL.
	Record(method, url string)
	// Requests returns every recorded request as "METHOD URL", oldest first.
	Requests() []string
	// Visited returns true if the URL has been requested with any method.
	Visited(url string) bool
}

type InMemoryHistory struct {
	requests []string
	visited  map[string]bool
	lock     *sync.RWMutex
}

func NewInMemoryHistory() *InMemoryHistory {
	return &InMemoryHistory{
		requests: []string{},
		visited:  make(map[string]bool),
		lock:     &sync.RWMutex{},
	}
}

func (h *InMemoryHistory) Record(method, url string) {
	h.lock.Lock()
	defer h.lock.Unlock()

	h.requests = append(h.requests, method+" "+url)
	h.visited[url] = true
}

func (h *InMemoryHistory) Requests() []string {
	h.lock.RLock()
	defer h.lock.RUnlock()

	return append([]string(nil), h.requests...)
}

func (h *InMemoryHistory) Visited(url string) bool {
	h.lock.RLock()
	defer h.lock.RUnlock()

	return h.visited[url]
}

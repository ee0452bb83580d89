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
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInMemoryHistory_Record(t *testing.T) {
	h := NewInMemoryHistory()

	h.Record("GET", "http://localhost/a")
	h.Record("POST", "http://localhost/a")

	assert.Equal(t, []string{"GET http://localhost/a", "POST http://localhost/a"}, h.Requests())
	assert.True(t, h.Visited("http://localhost/a"))
	assert.False(t, h.Visited("http://localhost/b"))
}

func TestInMemoryHistory_RequestsIsACopy(t *testing.T) {
	h := NewInMemoryHistory()
	h.Record("GET", "http://localhost/")

	requests := h.Requests()
	requests[0] = "changed"

	assert.Equal(t, []string{"GET http://localhost/"}, h.Requests())
}

func TestInMemoryHistory_Concurrent(t *testing.T) {
	h := NewInMemoryHistory()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Record("GET", "http://localhost/")
		}()
	}
	wg.Wait()

	assert.Len(t, h.Requests(), 10)
}

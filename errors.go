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
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotApplicable is matched by every UnsupportedContentTypeError.
	ErrNotApplicable = errors.New("accessor not applicable to response")
	// ErrDependencyMissing is matched by every DependencyMissingError.
	ErrDependencyMissing = errors.New("decoder dependency missing")
	// ErrDecode is matched by every DecodeError.
	ErrDecode = errors.New("response body could not be decoded")
	// ErrMissingContentType is returned when a response is built without a Content-Type header.
	ErrMissingContentType = errors.New("response has no Content-Type header")
)

// UnsupportedContentTypeError is returned when an accessor is used on a
// response whose mimetype is outside the accessor's domain. Callers use it
// to fall back from one accessor to another.
type UnsupportedContentTypeError struct {
	Accessor string
	Mimetype string
	Reason   string
}

func (e *UnsupportedContentTypeError) Error() string {
	return fmt.Sprintf("%s: %s (Content-Type: %s)", e.Accessor, e.Reason, e.Mimetype)
}

func (e *UnsupportedContentTypeError) Is(target error) bool {
	return target == ErrNotApplicable
}

// DependencyMissingError is returned when the mimetype matched but no
// backend for the accessor's Kind is registered.
type DependencyMissingError struct {
	Accessor   string
	Kind       Kind
	Candidates []string
}

func (e *DependencyMissingError) Error() string {
	return fmt.Sprintf("%s: no %s backend available (tried: %s)",
		e.Accessor, e.Kind, strings.Join(e.Candidates, ", "))
}

func (e *DependencyMissingError) Is(target error) bool {
	return target == ErrDependencyMissing
}

// DecodeError carries the backend's own parse error.
type DecodeError struct {
	Accessor string
	Backend  string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Accessor, e.Backend, e.Err)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

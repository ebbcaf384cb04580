package apiclient

import (
	"encoding/json"
	"net/http"
	"net/url"
)

// Request describes one backend call. Build it with the constructors below.
type Request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
	anonymous   bool
	fallback    string
	encodeErr   error
}

// NewRequest starts an authenticated request.
func NewRequest(method, path string) *Request {
	return &Request{method: method, path: path}
}

// Get is NewRequest(GET, path).
func Get(path string) *Request { return NewRequest(http.MethodGet, path) }

// Post is NewRequest(POST, path).
func Post(path string) *Request { return NewRequest(http.MethodPost, path) }

// Put is NewRequest(PUT, path).
func Put(path string) *Request { return NewRequest(http.MethodPut, path) }

// Delete is NewRequest(DELETE, path).
func Delete(path string) *Request { return NewRequest(http.MethodDelete, path) }

// JSON sets a JSON-encoded body.
func (r *Request) JSON(v any) *Request {
	r.body, r.encodeErr = json.Marshal(v)
	r.contentType = "application/json"
	return r
}

// Form sets a form-encoded body.
func (r *Request) Form(values url.Values) *Request {
	r.body = []byte(values.Encode())
	r.contentType = "application/x-www-form-urlencoded"
	return r
}

// Query adds a query parameter.
func (r *Request) Query(key, value string) *Request {
	if r.query == nil {
		r.query = url.Values{}
	}
	r.query.Add(key, value)
	return r
}

// Anonymous marks the request as not needing a credential.
func (r *Request) Anonymous() *Request {
	r.anonymous = true
	return r
}

// Fallback sets the message used when a failed response carries none.
func (r *Request) Fallback(message string) *Request {
	r.fallback = message
	return r
}

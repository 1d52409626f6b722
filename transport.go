package toggled

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

const cacheNoCache = "no-cache"

// Request is the fetch-shaped call the client hands to a Transport
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	Cache  string
}

// Response is what a Transport returns for a completed HTTP exchange
type Response interface {
	OK() bool
	Status() int
	Header(name string) string
	JSON(out interface{}) error
}

// Transport performs requests for the client. A returned error means no
// response was received; non-2xx statuses are reported through Response.
type Transport interface {
	Do(ctx context.Context, req *Request) (Response, error)
}

type TransportFunc func(ctx context.Context, req *Request) (Response, error)

func (f TransportFunc) Do(ctx context.Context, req *Request) (Response, error) {
	return f(ctx, req)
}

// BufferedResponse is a fully read response
type BufferedResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

func (r *BufferedResponse) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *BufferedResponse) Status() int {
	return r.StatusCode
}

func (r *BufferedResponse) Header(name string) string {
	return r.Headers.Get(name)
}

func (r *BufferedResponse) JSON(out interface{}) error {
	return json.Unmarshal(r.Body, out)
}

// HTTPTransport is the default Transport, backed by net/http
type HTTPTransport struct {
	client *http.Client
}

func NewHTTPTransport(client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPTransport{client: client}
}

func (t *HTTPTransport) Do(ctx context.Context, r *Request) (Response, error) {
	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, defaultString(r.Method, http.MethodGet), r.URL, body)
	if err != nil {
		return nil, err
	}
	for name, values := range r.Header {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
	if r.Cache == cacheNoCache {
		req.Header.Set("Cache-Control", cacheNoCache)
	}

	response, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	bodyBytes, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, err
	}
	return &BufferedResponse{
		StatusCode: response.StatusCode,
		Headers:    response.Header,
		Body:       bodyBytes,
	}, nil
}

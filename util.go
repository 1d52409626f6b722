package toggled

import (
	"net/http"
	"net/url"
	"time"
)

func defaultString(v, d string) string {
	if v == "" {
		return d
	}
	return v
}

// Allows for overriding in tests
var now = time.Now

func urlWithContextAsQuery(base *url.URL, ctx Context) *url.URL {
	withQuery := *base
	query := withQuery.Query()
	for key, value := range ctx {
		if value == "" {
			continue
		}
		query.Add(key, value)
	}
	withQuery.RawQuery = query.Encode()
	return &withQuery
}

// Presets are applied first; custom headers override them unless their value is empty.
func mergeHeaders(presets http.Header, custom map[string]string) http.Header {
	headers := presets.Clone()
	if headers == nil {
		headers = make(http.Header)
	}
	for name, value := range custom {
		if value == "" {
			continue
		}
		headers.Set(name, value)
	}
	return headers
}

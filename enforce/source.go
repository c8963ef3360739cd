package enforce

import (
	"net/http"
	"strings"

	"github.com/cursive-labs/beacon/schema"
)

// Data is the observed side of a hit: the body/query parameter map plus
// the non-body slots (header, cookie, path, etag) resolved on demand.
type Data interface {
	// Params returns the observed body/query key/value map.
	Params() map[string]string
	// Slot extracts a value from a non-body location.
	Slot(source schema.Source, key string) (string, bool)
}

// MapData adapts a plain key/value map. Non-body slots are always
// absent. Used by tests and by intake paths that pre-parse requests.
type MapData map[string]string

// Params returns the map itself.
func (m MapData) Params() map[string]string { return m }

// Slot always reports absence.
func (MapData) Slot(schema.Source, string) (string, bool) { return "", false }

// SlotExtractor extracts one non-body value from a request.
type SlotExtractor func(r *http.Request, key string) (string, bool)

// defaultExtractors resolves the standard non-body slots.
var defaultExtractors = map[schema.Source]SlotExtractor{
	schema.SourceHeader: func(r *http.Request, key string) (string, bool) {
		v := r.Header.Get(key)
		return v, v != ""
	},
	schema.SourceCookie: func(r *http.Request, key string) (string, bool) {
		c, err := r.Cookie(key)
		if err != nil {
			return "", false
		}
		return c.Value, true
	},
	schema.SourcePath: func(r *http.Request, key string) (string, bool) {
		// Named path segment, /v1/hit/<key-value> style routes resolve
		// via PathValue when the mux populated them.
		if v := r.PathValue(key); v != "" {
			return v, true
		}
		return "", false
	},
	schema.SourceEtag: func(r *http.Request, _ string) (string, bool) {
		v := strings.Trim(r.Header.Get("If-None-Match"), `"`)
		return v, v != ""
	},
}

// RequestData adapts an *http.Request. Query parameters form the
// observed map; non-body slots resolve through pluggable extractors
// keyed by source kind.
type RequestData struct {
	req        *http.Request
	params     map[string]string
	extractors map[schema.Source]SlotExtractor
}

// NewRequestData wraps a request with the default slot extractors.
func NewRequestData(r *http.Request) *RequestData {
	params := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}
	return &RequestData{req: r, params: params, extractors: defaultExtractors}
}

// WithExtractor overrides the extractor for one source kind.
func (d *RequestData) WithExtractor(source schema.Source, ex SlotExtractor) *RequestData {
	merged := make(map[schema.Source]SlotExtractor, len(d.extractors)+1)
	for k, v := range d.extractors {
		merged[k] = v
	}
	merged[source] = ex
	return &RequestData{req: d.req, params: d.params, extractors: merged}
}

// Params returns the observed query parameters.
func (d *RequestData) Params() map[string]string { return d.params }

// Slot extracts a non-body value via the extractor for its source kind.
func (d *RequestData) Slot(source schema.Source, key string) (string, bool) {
	ex, ok := d.extractors[source]
	if !ok {
		return "", false
	}
	return ex(d.req, key)
}

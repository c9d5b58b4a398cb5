package apiclient

import (
	"net/http"
	"net/url"

	"github.com/gravitational/trace"
	"github.com/tidwall/gjson"

	"github.com/marketdesk/adminctl/lib"
)

// Request describes one call to the admin backend.
type Request struct {
	Method string
	// Path is resolved against the client's base URL.
	Path   string
	Query  url.Values
	Header http.Header
	// Body is JSON encoded unless it is a string or []byte.
	Body interface{}
}

func (r Request) clone() Request {
	out := r
	if r.Header != nil {
		out.Header = r.Header.Clone()
	}
	if r.Query != nil {
		out.Query = make(url.Values, len(r.Query))
		for k, v := range r.Query {
			out.Query[k] = append([]string(nil), v...)
		}
	}
	return out
}

// attempt is a Request on its way to the backend together with its retry
// marker. A request is re-dispatched at most once, after a token refresh.
type attempt struct {
	req     Request
	retried bool
	id      string
}

// retry returns the follow-up attempt carrying the refreshed bearer token.
func (a attempt) retry(accessToken string) attempt {
	req := a.req.clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	req.Header.Set("Authorization", bearer(accessToken))
	return attempt{req: req, retried: true, id: a.id}
}

// Response is a successful backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Data returns the "data" envelope the admin backend wraps payloads in.
func (r *Response) Data() gjson.Result {
	return r.JSON("data")
}

// JSON returns the value at a gjson path of the body.
func (r *Response) JSON(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v interface{}) error {
	return trace.Wrap(lib.JSON.Unmarshal(r.Body, v))
}

const bearerPrefix = "Bearer "

func bearer(token string) string {
	return bearerPrefix + token
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) string {
	if len(header) > len(bearerPrefix) && header[:len(bearerPrefix)] == bearerPrefix {
		return header[len(bearerPrefix):]
	}
	return ""
}

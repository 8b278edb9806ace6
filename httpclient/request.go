package httpclient

// Request is one call against a provider API. Path is joined to the
// client's BaseURL unless it is already absolute.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   map[string]string
	// Body is sent as-is for io.Reader, []byte and string; anything else
	// is JSON-encoded.
	Body any
	// Auth replaces the client-level auth for this call only, e.g. the
	// "OAuth" scheme of the Twitch validate endpoint.
	Auth *AuthConfig
}

// Response is a fully read API response.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

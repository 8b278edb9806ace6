// Package httpclient provides the HTTP client used for the music and
// streaming platform APIs: classified errors, bearer auth read from a
// renewable token source, retry and a circuit breaker.
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.spotify.com/v1",
//	    Auth:    httpclient.TokenSourceAuth(cred.Cell),
//	    Retry:   httpclient.DefaultRetryConfig(),
//	})
//
//	resp, err := httpclient.Get[Playback](client, ctx, "/me/player")
//
// Typed helpers decode JSON bodies; a 204 or empty body leaves Data as the
// zero value.
package httpclient

package relay

import (
	"github.com/go-resty/resty/v2"
)

// installDebugHooks dumps requests and responses through the client logger
// when debug logging is on. Bodies are logged verbatim.
func (c *Client) installDebugHooks() {
	if !c.debug {
		return
	}
	c.http.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		ev := c.log.Debug().Str("method", r.Method).Str("url", r.URL)
		if r.Body != nil {
			ev = ev.Interface("body", r.Body)
		}
		ev.Msg("HTTP request")
		return nil
	})
	c.http.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		c.log.Debug().
			Str("method", resp.Request.Method).
			Str("url", resp.Request.URL).
			Int("status_code", resp.StatusCode()).
			Dur("elapsed", resp.Time()).
			Str("body", resp.String()).
			Msg("HTTP response")
		return nil
	})
	c.http.OnError(func(r *resty.Request, err error) {
		c.log.Error().Err(err).Str("method", r.Method).Str("url", r.URL).Msg("HTTP request failed")
	})
}

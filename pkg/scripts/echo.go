package scripts

import (
	"cgibox/pkg/cgi"
	"cgibox/pkg/utils/logger"
	"fmt"
	"strconv"
)

// NewEcho returns the diagnostic echo script. The body read is bounded by the declared
// length and undecodable bytes are replaced, so the response is always valid UTF-8.
func NewEcho(log *logger.Logger) Handler {
	return func(req *cgi.Request) *cgi.Response {
		body, err := req.Body()
		if err != nil {
			// keep whatever arrived before the failure
			log.Warn(fmt.Sprintf("echo: %v", err))
		}

		text := "method=" + req.Method + "\n" +
			"query=" + req.Query + "\n" +
			"len=" + strconv.Itoa(req.ContentLength) + "\n" +
			"body=" + cgi.DecodeText(body) + "\n"
		return cgi.NewResponse(200, text)
	}
}

package cgi

import (
	"fmt"
	"io"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

const DEFAULT_CONTENT_TYPE = "text/plain; charset=utf-8"

// Response is what a script hands back to the web server.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

func NewResponse(statusCode int, body string) *Response {
	return &Response{
		StatusCode:  statusCode,
		ContentType: DEFAULT_CONTENT_TYPE,
		Body:        []byte(body),
	}
}

// Reason is the phrase written after the status code: OK for 200, Error otherwise.
func (r *Response) Reason() string {
	if r.StatusCode == 200 {
		return "OK"
	}
	return "Error"
}

// WriteTo emits the status line, headers and body in one write. Content-Length is the
// byte length of the encoded body.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	contentType := r.ContentType
	if contentType == "" {
		contentType = DEFAULT_CONTENT_TYPE
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString("Status: " + strconv.Itoa(r.StatusCode) + " " + r.Reason() + "\r\n")
	buf.WriteString("Content-Type: " + contentType + "\r\n")
	buf.WriteString("Content-Length: " + strconv.Itoa(len(r.Body)) + "\r\n")
	buf.WriteString("\r\n")
	buf.Write(r.Body)

	n, err := buf.WriteTo(w)
	if err != nil {
		return n, fmt.Errorf("failed to write CGI response: %w", err)
	}
	return n, nil
}

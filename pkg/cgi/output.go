package cgi

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrNoHeaderTerminator = errors.New("cgi output has no header terminator")
	ErrHeaderTooLarge     = errors.New("cgi header block too large")
	ErrInvalidStatus      = errors.New("cgi output has an invalid status header")
)

// Header is a single response header emitted by a CGI program.
type Header struct {
	Name  string
	Value string
}

// Output is a parsed CGI program response as seen by the hosting server.
type Output struct {
	StatusCode int
	Headers    []Header
	Body       []byte
}

// Get returns the first header value matching name case-insensitively.
func (o *Output) Get(name string) string {
	for _, h := range o.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// ParseOutput splits raw program output into status, headers and body. The header
// block ends at whichever of CRLFCRLF or LFLF comes first. A Status header sets the
// response code and is not passed through.
func ParseOutput(raw []byte, maxHeaderBytes int) (*Output, error) {
	headerEnd, sepLen := bytes.Index(raw, []byte("\r\n\r\n")), 4
	if lf := bytes.Index(raw, []byte("\n\n")); lf >= 0 && (headerEnd < 0 || lf < headerEnd) {
		headerEnd, sepLen = lf, 2
	}
	if headerEnd < 0 {
		if maxHeaderBytes > 0 && len(raw) > maxHeaderBytes {
			return nil, ErrHeaderTooLarge
		}
		return nil, ErrNoHeaderTerminator
	}
	if maxHeaderBytes > 0 && headerEnd > maxHeaderBytes {
		return nil, ErrHeaderTooLarge
	}

	out := &Output{
		StatusCode: 200,
		Body:       raw[headerEnd+sepLen:],
	}

	for _, line := range strings.Split(string(raw[:headerEnd]), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			continue
		}
		name := line[:colon]
		value := strings.Trim(line[colon+1:], " \t")

		if strings.EqualFold(name, "Status") {
			code, err := parseStatus(value)
			if err != nil {
				return nil, err
			}
			out.StatusCode = code
			continue
		}
		out.Headers = append(out.Headers, Header{Name: name, Value: value})
	}

	return out, nil
}

func parseStatus(value string) (int, error) {
	field := value
	if sp := strings.IndexAny(value, " \t"); sp >= 0 {
		field = value[:sp]
	}
	code, err := strconv.Atoi(field)
	if err != nil || code < 100 || code > 999 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, value)
	}
	return code, nil
}

package response

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/worketyamo/workplace/services/auth-service/internal/domain"
)

// MaxBodyBytes bounds request bodies. Auth payloads are a few hundred bytes.
const MaxBodyBytes = 64 << 10

// DecodeJSON reads exactly one JSON object into dst. Unknown fields, trailing
// values and oversized bodies are rejected with invalid_json and a reason.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return invalidJSON("empty_body", errors.New("empty body"))
	}

	body := io.LimitReader(r.Body, MaxBodyBytes+1)
	counted := &countingReader{r: body}
	dec := json.NewDecoder(counted)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if counted.n > MaxBodyBytes {
			return invalidJSON("too_large", err)
		}
		return invalidJSON(reasonOf(err), err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return invalidJSON("trailing_data", errors.New("multiple JSON values"))
	}
	return nil
}

func invalidJSON(reason string, cause error) error {
	return domain.WithMeta(domain.ErrInvalidJSON(cause), map[string]string{"reason": reason})
}

func reasonOf(err error) string {
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return "empty_body"
	case errors.Is(err, io.ErrUnexpectedEOF), errors.As(err, &syn):
		return "syntax"
	case errors.As(err, &typ):
		return "type"
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		return "unknown_field"
	default:
		return "malformed"
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

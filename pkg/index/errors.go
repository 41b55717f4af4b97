package index

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for adapter construction. Both indicate a caller error and
// are raised synchronously, never isolated per document.
var (
	ErrInvalidIndex   = errors.New("invalid index")
	ErrInvalidCommand = errors.New("invalid command")
)

// ErrSpentAdapter reports a second invocation of a single-shot adapter.
var ErrSpentAdapter = errors.New("adapter command already invoked")

// InitError is raised when an adapter is constructed with an unknown index or
// command. It wraps the matching sentinel so callers can tell which of the
// two was invalid.
type InitError struct {
	Err   error // ErrInvalidIndex or ErrInvalidCommand
	Value string
}

func (e *InitError) Error() string {
	if errors.Is(e.Err, ErrInvalidIndex) {
		return fmt.Sprintf("Index informado inválido: %s", e.Value)
	}
	return fmt.Sprintf("Comando informado inválido: %s", e.Value)
}

func (e *InitError) Unwrap() error { return e.Err }

// Message prefixes for index exchanges. The wording is part of the exporter's
// public surface; downstream log tooling greps for these strings.
const (
	prefixExport = "Erro na exportação ao"
	prefixQuery  = "Erro na consulta ao"
	prefixUpdate = "Erro ao atualizar o"
	prefixDelete = "Erro ao deletar no"
)

// HTTPError reports an index response that completed with an error status.
// Detail carries the service-provided error string, extracted only from 400
// responses.
type HTTPError struct {
	Index      string
	StatusCode int
	URL        string
	Detail     string
	prefix     string
}

func newHTTPError(prefix, index string, statusCode int, url, detail string) *HTTPError {
	return &HTTPError{
		Index:      index,
		StatusCode: statusCode,
		URL:        url,
		Detail:     detail,
		prefix:     prefix,
	}
}

func (e *HTTPError) Error() string {
	detail := ""
	if e.Detail != "" {
		detail = " " + e.Detail
	}
	return fmt.Sprintf("%s %s: %d %s for url %s.%s",
		e.prefix, e.Index, e.StatusCode, http.StatusText(e.StatusCode), e.URL, detail)
}

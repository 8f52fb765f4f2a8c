// Package baseline decodes a complete bulk response into memory and reports
// its failed entries.
//
// It is the straightforward way to answer the same question the scanner
// answers, and serves as the reference for differential tests and as the
// baseline in benchmarks. Memory grows with the document, so production code
// should use the scanner instead.
package baseline

import (
	"fmt"
	"io"

	json "github.com/goccy/go-json"

	"github.com/arloliu/bulkscan/errs"
	"github.com/arloliu/bulkscan/scanner"
)

// Response is the bulk response document.
type Response struct {
	Took   int64  `json:"took"`
	Errors *bool  `json:"errors,omitempty"`
	Items  []Item `json:"items"`
}

// Item is one element of the items array: a single-key object mapping the
// operation name ("index", "create", "update", "delete") to its result.
type Item map[string]Result

// Result is the outcome of one bulk operation.
type Result struct {
	Index   string          `json:"_index,omitempty"`
	ID      string          `json:"_id"`
	Version int64           `json:"_version,omitempty"`
	Result  string          `json:"result,omitempty"`
	Status  int             `json:"status"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// Decode reads and decodes the whole response from r.
//
// Returns errs.ErrMalformedInput wrapping the decoder error when r does not
// hold a bulk response.
func Decode(r io.Reader) (*Response, error) {
	var resp Response
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrMalformedInput, err)
	}

	return &resp, nil
}

// Parse decodes the response from r and returns the identifiers of entries
// whose status equals targetStatus, in document order.
//
// The result matches what scanner.Parser reports for the same document:
// an absent or false failure flag means success, and more than maxErrors
// matching entries fails with errs.ErrOverflow.
func Parse(r io.Reader, targetStatus int, maxErrors int) (scanner.Outcome, error) {
	if maxErrors < 0 {
		return scanner.Outcome{}, fmt.Errorf("%w: negative maxErrors %d", errs.ErrInvalidOption, maxErrors)
	}

	resp, err := Decode(r)
	if err != nil {
		return scanner.Outcome{}, err
	}

	return resp.Outcome(targetStatus, maxErrors)
}

// Outcome evaluates a decoded response.
func (resp *Response) Outcome(targetStatus int, maxErrors int) (scanner.Outcome, error) {
	if resp.Errors == nil || !*resp.Errors {
		return scanner.Outcome{Success: true}, nil
	}

	ids := []string{}
	for _, item := range resp.Items {
		for _, result := range item {
			if result.Status != targetStatus {
				continue
			}
			if len(ids) >= maxErrors {
				return scanner.Outcome{}, fmt.Errorf("%w: capacity %d", errs.ErrOverflow, maxErrors)
			}
			ids = append(ids, result.ID)
		}
	}

	return scanner.Outcome{Success: false, IDs: ids}, nil
}

// Marshal serializes resp the way a search cluster does: compact, with the
// failure flag ahead of the items array.
func Marshal(resp *Response) ([]byte, error) {
	return json.Marshal(resp)
}

// Encode writes the serialized resp to w.
func Encode(w io.Writer, resp *Response) error {
	return json.NewEncoder(w).Encode(resp)
}

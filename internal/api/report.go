package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/nerrad567/devtrack/internal/ingest"
)

// maxMultipartMemory is the in-memory budget for multipart form parsing.
const maxMultipartMemory = 1 << 20

// errBodyTooLarge marks a report body rejected by the size limit.
var errBodyTooLarge = errors.New("request body too large")

// readReportFields resolves the single input source of a report request.
//
// The first non-empty source wins, in order:
//  1. a JSON object in the body (any content type other than a form)
//  2. url-encoded or multipart form fields in the body
//  3. query parameters
//
// Sources are never merged. A body that is not a JSON object falls through
// to the next source rather than failing the request.
func readReportFields(r *http.Request) (ingest.Source, ingest.Fields, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")) //nolint:errcheck // unparseable type is treated as absent

	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		fields, err := readFormFields(r, mediaType)
		if err != nil {
			return "", nil, err
		}
		if len(fields) > 0 {
			return ingest.SourceForm, fields, nil
		}
	default:
		fields, err := readJSONFields(r)
		if err != nil {
			return "", nil, err
		}
		if len(fields) > 0 {
			return ingest.SourceJSON, fields, nil
		}
	}

	return ingest.SourceQuery, ingest.FieldsFromValues(r.URL.Query()), nil
}

// readJSONFields reads the body as a JSON object. Returns nil fields when
// the body is empty or is not a JSON object.
func readJSONFields(r *http.Request) (ingest.Fields, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, bodyReadError(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	fields, err := ingest.FieldsFromJSON(body)
	if err != nil {
		return nil, nil //nolint:nilerr // non-JSON bodies fall through to the next source
	}
	return fields, nil
}

// readFormFields parses form fields from the body only, ignoring the query.
func readFormFields(r *http.Request, mediaType string) (ingest.Fields, error) {
	var err error
	if mediaType == "multipart/form-data" {
		err = r.ParseMultipartForm(maxMultipartMemory)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return nil, bodyReadError(err)
	}
	return ingest.FieldsFromValues(r.PostForm), nil
}

func bodyReadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errBodyTooLarge
	}
	return fmt.Errorf("reading request body: %w", err)
}

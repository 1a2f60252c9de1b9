package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDocument is returned when a raw course document cannot be decoded
var ErrInvalidDocument = errors.New("invalid course document")

type courseDoc struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Category    string          `json:"category"`
	AccessLevel string          `json:"accessLevel"`
	Modules     json.RawMessage `json:"modules"`
}

type moduleDoc struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Order      *int            `json:"order"`
	UnlockDate json.RawMessage `json:"unlockDate"`
	Lessons    []lessonDoc     `json:"lessons"`
}

type lessonDoc struct {
	Title    string `json:"title"`
	VideoRef string `json:"videoRef"`
	Duration any    `json:"duration"`
}

// timestampDoc is the exported form of a document-store timestamp
type timestampDoc struct {
	Seconds     *int64 `json:"seconds"`
	Nanoseconds int64  `json:"nanoseconds"`
}

// DecodeCourse decodes a course document. "modules" may be an object keyed by
// module id (key order is kept as insertion order) or an array of modules
// carrying their own "id".
func DecodeCourse(data []byte) (RawCourse, error) {
	var doc courseDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return RawCourse{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	modules, err := decodeModules(doc.Modules)
	if err != nil {
		return RawCourse{}, err
	}

	return RawCourse{
		ID:          doc.ID,
		Title:       strings.TrimSpace(doc.Title),
		Category:    doc.Category,
		AccessLevel: doc.AccessLevel,
		Modules:     modules,
	}, nil
}

func decodeModules(data json.RawMessage) ([]RawModule, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	var modules []RawModule
	switch tok {
	case json.Delim('{'):
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
			}
			key, _ := keyTok.(string)

			var md moduleDoc
			if err := dec.Decode(&md); err != nil {
				return nil, fmt.Errorf("%w: module %q: %v", ErrInvalidDocument, key, err)
			}
			md.ID = key
			m, err := md.toRaw()
			if err != nil {
				return nil, err
			}
			modules = append(modules, m)
		}
	case json.Delim('['):
		for dec.More() {
			var md moduleDoc
			if err := dec.Decode(&md); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
			}
			if md.ID == "" {
				return nil, fmt.Errorf("%w: module without id", ErrInvalidDocument)
			}
			m, err := md.toRaw()
			if err != nil {
				return nil, err
			}
			modules = append(modules, m)
		}
	default:
		return nil, fmt.Errorf("%w: modules must be an object or an array", ErrInvalidDocument)
	}

	return modules, nil
}

func (md moduleDoc) toRaw() (RawModule, error) {
	unlock, err := parseTimestamp(md.UnlockDate)
	if err != nil {
		return RawModule{}, fmt.Errorf("%w: module %q: unlockDate: %v", ErrInvalidDocument, md.ID, err)
	}

	m := RawModule{
		ID:         md.ID,
		Title:      md.Title,
		Order:      md.Order,
		UnlockDate: unlock,
		Lessons:    make([]RawLesson, 0, len(md.Lessons)),
	}
	for _, l := range md.Lessons {
		m.Lessons = append(m.Lessons, RawLesson{
			Title:    l.Title,
			VideoRef: l.VideoRef,
			Duration: l.Duration,
		})
	}
	return m, nil
}

// parseTimestamp accepts null, an RFC 3339 string, epoch milliseconds, or a
// {"seconds", "nanoseconds"} object.
func parseTimestamp(raw json.RawMessage) (*time.Time, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, err
		}
		return &t, nil
	case '{':
		var ts timestampDoc
		if err := json.Unmarshal(trimmed, &ts); err != nil {
			return nil, err
		}
		if ts.Seconds == nil {
			return nil, errors.New("missing seconds")
		}
		t := time.Unix(*ts.Seconds, ts.Nanoseconds).UTC()
		return &t, nil
	default:
		var ms int64
		if err := json.Unmarshal(trimmed, &ms); err != nil {
			return nil, err
		}
		t := time.UnixMilli(ms).UTC()
		return &t, nil
	}
}

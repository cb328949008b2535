package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cdtdelta/honeydash/internal/model"
)

// decodeResult is the outcome of decoding a JSON or JSON lines document.
type decodeResult struct {
	Events   []model.Event
	Excluded int
}

// decodeEvents reads either a JSON array of events or one event object per
// line. A malformed array fails the whole document; malformed lines are
// skipped and counted.
func decodeEvents(r io.Reader) (*decodeResult, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err == io.EOF {
		return nil, fmt.Errorf("empty document")
	}
	if err != nil {
		return nil, err
	}

	if first == '[' {
		events := []model.Event{}
		if err := json.NewDecoder(br).Decode(&events); err != nil {
			return nil, fmt.Errorf("decoding event array: %w", err)
		}
		return &decodeResult{Events: events}, nil
	}
	if first != '{' {
		return nil, fmt.Errorf("document is neither a JSON array nor JSON lines")
	}
	return decodeLines(br)
}

func decodeLines(r io.Reader) (*decodeResult, error) {
	scanner := bufio.NewScanner(r)
	// Allow up to 10MB per line
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)

	result := &decodeResult{Events: []model.Event{}}
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e model.Event
		if err := json.Unmarshal(line, &e); err != nil {
			result.Excluded++
			continue
		}
		result.Events = append(result.Events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading line %d: %w", lineNum, err)
	}
	return result, nil
}

// peekNonSpace skips leading whitespace (and a UTF-8 BOM) and returns the
// next byte without consuming it.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	if b, err := br.Peek(3); err == nil && bytes.Equal(b, []byte{0xEF, 0xBB, 0xBF}) {
		br.Discard(3)
	}
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			br.Discard(1)
		default:
			return b[0], nil
		}
	}
}

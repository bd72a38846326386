package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// normalizeJSONC rewrites JSONC into strict JSON. Comments are blanked in
// place so line numbers in decode errors match the source file.
func normalizeJSONC(content string) (string, error) {
	stripped, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(stripped), nil
}

// stringEnd returns the index just past the JSON string starting at content[start].
func stringEnd(content string, start int) int {
	for i := start + 1; i < len(content); i++ {
		switch content[i] {
		case '\\':
			i++
		case '"':
			return i + 1
		}
	}
	return len(content)
}

// stripJSONCComments blanks // and /* */ comments outside strings, keeping newlines.
func stripJSONCComments(content string) (string, error) {
	out := []byte(content)

	for i := 0; i < len(out); i++ {
		switch {
		case out[i] == '"':
			i = stringEnd(content, i) - 1
		case out[i] == '/' && i+1 < len(out) && out[i+1] == '/':
			for i < len(out) && out[i] != '\n' && out[i] != '\r' {
				out[i] = ' '
				i++
			}
		case out[i] == '/' && i+1 < len(out) && out[i+1] == '*':
			end := strings.Index(content[i+2:], "*/")
			if end < 0 {
				return "", fmt.Errorf("unterminated block comment in JSONC")
			}
			stop := i + 2 + end + 2
			for j := i; j < stop; j++ {
				if out[j] != '\n' && out[j] != '\r' && out[j] != '\t' {
					out[j] = ' '
				}
			}
			i = stop - 1
		}
	}

	return string(out), nil
}

// stripJSONCTrailingCommas drops commas that directly precede } or ].
func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	for i := 0; i < len(content); i++ {
		ch := content[i]
		if ch == '"' {
			end := stringEnd(content, i)
			out.WriteString(content[i:end])
			i = end - 1
			continue
		}
		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}
		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\n' || ch == '\r' || ch == '\t'
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var offset int64 = -1

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	}
	if offset < 0 {
		return err
	}

	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	prefix := content[:limit-1]
	line := strings.Count(prefix, "\n") + 1
	col := limit - strings.LastIndexByte(prefix, '\n') - 1
	return line, col
}

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

func decodeJSONC(content string) (filePayload, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return filePayload{}, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload filePayload
	if err := decoder.Decode(&payload); err != nil {
		return filePayload{}, wrapJSONDecodeError(normalized, err, decoder.InputOffset())
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return filePayload{}, wrapJSONDecodeError(normalized, err, decoder.InputOffset())
	}
	return payload, nil
}

type jsoncState int

const (
	jsoncCode jsoncState = iota
	jsoncString
	jsoncEscape
	jsoncLineComment
	jsoncBlockComment
)

// normalizeJSONC blanks comments and trailing commas with spaces in a single
// pass. Byte offsets are preserved, so decoder errors still point at the
// line and column of the original file.
func normalizeJSONC(content string) (string, error) {
	out := []byte(content)
	state := jsoncCode
	pendingComma := -1

	for i := 0; i < len(out); i++ {
		ch := out[i]
		switch state {
		case jsoncString:
			switch ch {
			case '\\':
				state = jsoncEscape
			case '"':
				state = jsoncCode
			}
		case jsoncEscape:
			state = jsoncString
		case jsoncLineComment:
			if ch == '\n' || ch == '\r' {
				state = jsoncCode
			} else {
				out[i] = ' '
			}
		case jsoncBlockComment:
			if ch == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i], out[i+1] = ' ', ' '
				i++
				state = jsoncCode
			} else if ch != '\n' && ch != '\r' && ch != '\t' {
				out[i] = ' '
			}
		default:
			switch {
			case ch == '/' && i+1 < len(out) && (out[i+1] == '/' || out[i+1] == '*'):
				if out[i+1] == '/' {
					state = jsoncLineComment
				} else {
					state = jsoncBlockComment
				}
				out[i], out[i+1] = ' ', ' '
				i++
			case ch == ',':
				pendingComma = i
			case ch == '}' || ch == ']':
				if pendingComma >= 0 {
					out[pendingComma] = ' '
				}
				pendingComma = -1
			case isJSONWhitespace(ch):
			default:
				if ch == '"' {
					state = jsoncString
				}
				pendingComma = -1
			}
		}
	}

	if state == jsoncBlockComment {
		return "", errors.New("unterminated block comment in JSONC")
	}
	return string(out), nil
}

func isJSONWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\n' || ch == '\r' || ch == '\t'
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	_, err := decoder.Token()
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return errors.New("multiple JSON values are not allowed")
	default:
		return err
	}
}

// wrapJSONDecodeError prefixes err with a line and column. Errors without
// their own offset (unknown fields) use the decoder position.
func wrapJSONDecodeError(content string, err error, inputOffset int64) error {
	offset := inputOffset

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	case inputOffset <= 0:
		return err
	}

	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// offsetToLineCol maps a 1-based decoder offset to a line and byte column.
func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}
	prefix := content[:max(min(int(offset), len(content))-1, 0)]
	line := strings.Count(prefix, "\n") + 1
	col := len(prefix) - strings.LastIndex(prefix, "\n")
	return line, col
}

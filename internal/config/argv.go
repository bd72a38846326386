package config

import (
	"fmt"
	"strings"
	"unicode"
)

// parseArgv splits a command line with shell-like quoting. Backslash escapes
// apply outside quotes and inside double quotes; single quotes are literal.
func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil
	}

	var (
		argv    []string
		current strings.Builder
		inWord  bool
		quote   rune
		escape  bool
	)

	for _, r := range input {
		if escape {
			current.WriteRune(r)
			escape = false
			continue
		}

		switch quote {
		case '\'':
			if r == '\'' {
				quote = 0
			} else {
				current.WriteRune(r)
			}
			continue
		case '"':
			switch r {
			case '"':
				quote = 0
			case '\\':
				escape = true
			default:
				current.WriteRune(r)
			}
			continue
		}

		switch {
		case r == '\\':
			escape, inWord = true, true
		case r == '\'' || r == '"':
			quote, inWord = r, true
		case unicode.IsSpace(r):
			if inWord {
				argv = append(argv, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if escape {
		return nil, fmt.Errorf("unterminated escape in command %q", input)
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote in command %q", quote, input)
	}
	if inWord {
		argv = append(argv, current.String())
	}
	return argv, nil
}

func mustParseArgv(input string) []string {
	argv, err := parseArgv(input)
	if err != nil {
		panic(err)
	}
	return argv
}

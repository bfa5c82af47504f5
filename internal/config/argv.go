package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// ParseCommand splits a shell-like command line for diagnostics.settings_cmd.
// Single and double quotes group words, a backslash escapes the next rune,
// and a leading "~/" in the program is expanded to the home directory.
// Blank input and input starting with "#" yield an empty command.
func ParseCommand(raw string) (CommandConfig, error) {
	cmd := CommandConfig{Raw: raw}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return cmd, nil
	}

	argv, err := splitWords(trimmed)
	if err != nil {
		return CommandConfig{}, fmt.Errorf("%w: %q", err, raw)
	}
	if len(argv) > 0 {
		argv[0] = expandHome(argv[0])
	}
	cmd.Argv = argv
	return cmd, nil
}

func mustParseCommand(raw string) CommandConfig {
	cmd, err := ParseCommand(raw)
	if err != nil {
		panic(err)
	}
	return cmd
}

func splitWords(input string) ([]string, error) {
	var (
		words   []string
		word    strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range input {
		switch {
		case escaped:
			word.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped, inWord = true, true
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			word.WriteRune(r)
		case r == '\'' || r == '"':
			quote, inWord = r, true
		case unicode.IsSpace(r):
			if inWord {
				words = append(words, word.String())
				word.Reset()
				inWord = false
			}
		default:
			word.WriteRune(r)
			inWord = true
		}
	}

	switch {
	case escaped:
		return nil, fmt.Errorf("unterminated escape sequence in command")
	case quote != 0:
		return nil, fmt.Errorf("unterminated quote in command")
	}
	if inWord {
		words = append(words, word.String())
	}
	return words, nil
}

func expandHome(program string) string {
	if !strings.HasPrefix(program, "~/") {
		return program
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return program
	}
	return filepath.Join(home, program[2:])
}

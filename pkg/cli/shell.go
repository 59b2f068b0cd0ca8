// pkg/cli/shell.go
package cli

import (
	"bufio"
	"io"
	"strings"
)

// Shell provides readline-like input handling for the coredb command
// shell: multi-line command assembly terminated by a semicolon, plus
// bounded command history.
type Shell struct {
	reader *bufio.Reader

	output    io.Writer
	errOutput io.Writer

	prompt         string
	continuePrompt string

	history      []string
	historyIndex int
	maxHistory   int
}

// NewShell creates a shell reading from input and writing prompts and
// output to output. If errOutput is nil, errors go to output too.
func NewShell(input io.Reader, output, errOutput io.Writer) *Shell {
	var reader *bufio.Reader
	if input != nil {
		reader = bufio.NewReader(input)
	}
	if errOutput == nil {
		errOutput = output
	}
	return &Shell{
		reader:         reader,
		output:         output,
		errOutput:      errOutput,
		prompt:         "coredb> ",
		continuePrompt: "    -> ",
		maxHistory:     1000,
	}
}

// SetPrompt changes the primary prompt string.
func (s *Shell) SetPrompt(prompt string) { s.prompt = prompt }

// SetContinuePrompt changes the continuation prompt string.
func (s *Shell) SetContinuePrompt(prompt string) { s.continuePrompt = prompt }

// ReadLine reads a single line, stripping trailing whitespace, and
// reports whether EOF was reached.
func (s *Shell) ReadLine() (string, bool) {
	if s.reader == nil {
		return "", true
	}
	line, err := s.reader.ReadString('\n')
	line = strings.TrimRight(line, " \t\r\n")
	return line, err != nil
}

// ReadStatement reads a complete command, which may span multiple
// lines. A command is complete once it ends with a semicolon outside
// of a quoted string — single-quoted strings are one token, and a
// backslash escapes the next character.
func (s *Shell) ReadStatement() (string, bool) {
	var lines []string
	isFirst := true

	for {
		if s.output != nil {
			if isFirst {
				io.WriteString(s.output, s.prompt)
			} else {
				io.WriteString(s.output, s.continuePrompt)
			}
		}
		isFirst = false

		line, eof := s.ReadLine()

		if eof && line == "" && len(lines) == 0 {
			return "", true
		}

		lines = append(lines, line)
		combined := strings.Join(lines, "\n")

		if s.IsComplete(combined) {
			if trimmed := strings.TrimSpace(combined); trimmed != "" {
				s.AddHistory(trimmed)
			}
			return combined, false
		}

		if eof {
			return combined, true
		}
	}
}

// IsComplete reports whether cmd ends with a semicolon that is
// outside a single- or double-quoted string and outside a line
// comment, honoring backslash escapes inside quotes.
func (s *Shell) IsComplete(cmd string) bool {
	if cmd == "" {
		return false
	}

	inSingle, inDouble, inComment := false, false, false
	lastSemicolon := -1
	trailing := false // non-blank input after lastSemicolon

	runes := []rune(cmd)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' {
			inComment = false
			continue
		}
		if inComment {
			continue
		}
		if r == '-' && i+1 < len(runes) && runes[i+1] == '-' {
			inComment = true
			i++
			continue
		}
		if lastSemicolon >= 0 && r != ';' && r != ' ' && r != '\t' && r != '\r' {
			trailing = true
		}
		if r == '\\' && (inSingle || inDouble) && i+1 < len(runes) {
			i++
			continue
		}
		if r == '\'' && !inDouble {
			inSingle = !inSingle
			continue
		}
		if r == '"' && !inSingle {
			inDouble = !inDouble
			continue
		}
		if r == ';' && !inSingle && !inDouble {
			lastSemicolon = i
			trailing = false
		}
	}

	return !inSingle && !inDouble && lastSemicolon >= 0 && !trailing
}

// AddHistory records stmt, skipping consecutive duplicates and
// trimming to maxHistory entries.
func (s *Shell) AddHistory(stmt string) {
	if len(s.history) > 0 && s.history[len(s.history)-1] == stmt {
		return
	}
	s.history = append(s.history, stmt)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
	s.historyIndex = len(s.history)
}

// History returns a copy of the recorded command history.
func (s *Shell) History() []string {
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// ClearHistory discards all recorded history.
func (s *Shell) ClearHistory() {
	s.history = nil
	s.historyIndex = 0
}

// HistoryPrev moves backward through history, returning "" at the
// start.
func (s *Shell) HistoryPrev() string {
	if s.historyIndex > 0 {
		s.historyIndex--
		return s.history[s.historyIndex]
	}
	return ""
}

// HistoryNext moves forward through history, returning "" at the end.
func (s *Shell) HistoryNext() string {
	if s.historyIndex < len(s.history)-1 {
		s.historyIndex++
		return s.history[s.historyIndex]
	}
	s.historyIndex = len(s.history)
	return ""
}

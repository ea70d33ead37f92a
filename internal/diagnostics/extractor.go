package diagnostics

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	// "   5  x = y;" - a numbered source echo line in the compilation output.
	echoRe = regexp.MustCompile(`^(\s*(\d+))(\s\s|\s*$)`)
	// "****      $140   $36,148" - error markers under the echoed line.
	markerLineRe = regexp.MustCompile(`^\*{4}[\s$\d,]+$`)
	markerRe     = regexp.MustCompile(`\$(\d+(?:,\d+)*)`)
	// "**** 140  Unknown symbol" - inline error text.
	inlineMessageRe = regexp.MustCompile(`^\*{4}\s+(\d+)\s{2,}(\S.*)$`)
	// "140  Unknown symbol" - entries of the trailing Error Messages block.
	blockMessageRe = regexp.MustCompile(`^\s*(\d+)\s{2,}(\S.*)$`)
	// "*** Error 140 in /path/model.gms(5,3)" - log markers.
	logMarkerRe = regexp.MustCompile(`^\*{3}\s+([A-Za-z]+)(?:\s+(\d+))?\s+in\s+(.+?)(?:\((\d+)(?:,(\d+))?\))?\s*$`)
)

const errorMessagesHeader = "Error Messages"

// Extract converts every compiler marker in output into one Diagnostic.
//
// Diagnostics keep the order in which their markers first appear. Listing
// markers ($nnn under an echoed source line) are errors; log markers
// (*** Word nnn in file) take their severity from the marker word, with
// unknown words reported as info. Diagnostics without an explicit file are
// attributed to document.
func Extract(output string, document string) []Diagnostic {
	lines := strings.Split(strings.ReplaceAll(output, "\r\n", "\n"), "\n")
	messages := collectMessages(lines)

	var (
		result       []Diagnostic
		echoLine     = 1
		echoPrefix   = 0
		inMessageBlk bool
	)

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		if trimmed == errorMessagesHeader {
			inMessageBlk = true
			continue
		}

		if m := logMarkerRe.FindStringSubmatch(line); m != nil {
			d := Diagnostic{
				Severity: ParseSeverity(m[1]),
				Document: strings.TrimSpace(m[3]),
				Line:     atoiDefault(m[4], 1),
				Column:   atoiDefault(m[5], 1),
			}
			d.Code = atoiDefault(m[2], 0)

			// The message is the indented line that follows the marker.
			if i+1 < len(lines) && isContinuation(lines[i+1]) {
				d.Message = strings.TrimSpace(lines[i+1])
				i++
			} else {
				d.Message = messageFor(messages, d.Code, m[1])
			}
			result = append(result, d)
			continue
		}

		if markerLineRe.MatchString(line) && strings.Contains(line, "$") {
			for _, idx := range markerRe.FindAllStringSubmatchIndex(line, -1) {
				column := idx[0] - echoPrefix + 1
				if column < 1 {
					column = 1
				}
				for _, code := range strings.Split(line[idx[2]:idx[3]], ",") {
					n, _ := strconv.Atoi(code)
					result = append(result, Diagnostic{
						Severity: SeverityError,
						Code:     n,
						Message:  messageFor(messages, n, "Error"),
						Document: document,
						Line:     echoLine,
						Column:   column,
					})
				}
			}
			continue
		}

		if !inMessageBlk {
			if m := echoRe.FindStringSubmatch(line); m != nil {
				echoLine, _ = strconv.Atoi(m[2])
				echoPrefix = len(m[1]) + len(m[3])
			}
		}
	}

	return result
}

// collectMessages gathers error texts keyed by error number. Inline
// "**** nnn  text" lines win over the trailing Error Messages block.
func collectMessages(lines []string) map[int]string {
	messages := make(map[int]string)
	inBlock := false

	for _, line := range lines {
		if strings.TrimSpace(line) == errorMessagesHeader {
			inBlock = true
			continue
		}

		if m := inlineMessageRe.FindStringSubmatch(line); m != nil {
			code, _ := strconv.Atoi(m[1])
			messages[code] = strings.TrimSpace(m[2])
			continue
		}

		if inBlock {
			if m := blockMessageRe.FindStringSubmatch(line); m != nil {
				code, _ := strconv.Atoi(m[1])
				if _, ok := messages[code]; !ok {
					messages[code] = strings.TrimSpace(m[2])
				}
			}
		}
	}

	return messages
}

func messageFor(messages map[int]string, code int, word string) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	if code == 0 {
		return word
	}
	return fmt.Sprintf("%s %d", word, code)
}

// isContinuation reports whether line is indented message text.
func isContinuation(line string) bool {
	if line == "" || (line[0] != ' ' && line[0] != '\t') {
		return false
	}
	trimmed := strings.TrimSpace(line)
	return trimmed != "" && !strings.HasPrefix(trimmed, "***") && !strings.HasPrefix(trimmed, "---")
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// FromParseError turns a non-fatal listing parse failure into a
// document-level warning.
func FromParseError(document string, err error) Diagnostic {
	return Diagnostic{
		Severity: SeverityWarning,
		Message:  err.Error(),
		Document: document,
		Line:     1,
		Column:   1,
	}
}

// Synthetic is the single diagnostic reported when the compiler could not be
// run or produced no output.
func Synthetic(document string, err error) Diagnostic {
	return Diagnostic{
		Severity: SeverityError,
		Message:  fmt.Sprintf("compiler invocation failed: %v", err),
		Document: document,
		Line:     1,
		Column:   1,
	}
}

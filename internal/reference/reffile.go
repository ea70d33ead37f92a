package reference

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Reference file layout (compiler option rf=):
//
//	<seq> <name> <kind> <refType> <line> <column> <fileIndex> <file>
//	...
//	0
//	<seq> <name> <kind> <dim> <description>
var (
	refLineRe    = regexp.MustCompile(`^\s*(\d+)\s+(\S+)\s+(\S+)\s+(\S+)\s+(\d+)\s+(\d+)\s+(\d+)\s+(.+?)\s*$`)
	symbolLineRe = regexp.MustCompile(`^\s*(\d+)\s+(\S+)\s+(\S+)\s+(\d+)(?:\s+(.*?))?\s*$`)
)

// ParseRefFile reads a GAMS reference file into symbols in file order.
//
// A declared reference starts a new symbol; any other reference attaches to
// the most recent symbol with the same name (case-insensitive), or starts an
// implicit one at that reference. Malformed lines are skipped.
func ParseRefFile(r io.Reader) ([]*Symbol, error) {
	var symbols []*Symbol
	latest := make(map[string]*Symbol)
	byName := make(map[string][]*Symbol)
	inSymbolTable := false

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		if !inSymbolTable {
			if strings.TrimSpace(line) == "0" {
				inSymbolTable = true
				continue
			}

			m := refLineRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			lineNo, _ := strconv.Atoi(m[5])
			col, _ := strconv.Atoi(m[6])
			usage := Usage{
				Position: Position{File: m[8], Line: lineNo, Column: col},
				Type:     RefType(strings.ToLower(m[4])),
			}

			key := strings.ToLower(m[2])
			sym := latest[key]
			if usage.Type == RefDeclared || sym == nil {
				sym = &Symbol{
					ID:         symbolID(m[2], usage.Position),
					Name:       m[2],
					Kind:       strings.ToUpper(m[3]),
					Definition: usage.Position,
				}
				symbols = append(symbols, sym)
				latest[key] = sym
				byName[key] = append(byName[key], sym)
			}
			sym.Usages = append(sym.Usages, usage)
			continue
		}

		m := symbolLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		dim, _ := strconv.Atoi(m[4])
		for _, sym := range byName[strings.ToLower(m[2])] {
			sym.Dimension = dim
			sym.Description = m[5]
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reference file: %w", err)
	}
	return symbols, nil
}

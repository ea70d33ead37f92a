package listing

import (
	"regexp"
	"strconv"
	"strings"
)

// sectionHeaders are the top-level headers GAMS writes into a listing,
// after spaced-out titles have been collapsed.
var sectionHeaders = []string{
	"Compilation",
	"Execution",
	"Include File Summary",
	"Error Messages",
	"Equation Listing",
	"Column Listing",
	"Model Statistics",
	"Range Statistics",
	"Solution Report",
	"Symbol Listing",
}

const solveSummaryHeader = "SOLVE SUMMARY"

var (
	pageHeaderRe    = regexp.MustCompile(`^GAMS\s+\S+.*\sPage\s+\d+\s*$`)
	multiSpaceRe    = regexp.MustCompile(`\s{2,}`)
	spacedLettersRe = regexp.MustCompile(`^(\S )+\S$`)

	solutionEntryRe = regexp.MustCompile(`^----\s+(EQU|VAR)\s+([A-Za-z_][A-Za-z0-9_]*)(.*)$`)
	displayEntryRe  = regexp.MustCompile(`^----\s+\d+\s+(PARAMETER|SET|VARIABLE|EQUATION|SCALAR|ALIAS)\s+([A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z]+)?)(.*)$`)
	plainEntryRe    = regexp.MustCompile(`^----\s+([A-Za-z_][A-Za-z0-9_]*)(.*)$`)
	declarationRe   = regexp.MustCompile(`^(EQUATIONS?|VARIABLES?|PARAMETERS?|SETS?|SCALARS?)\s+([A-Za-z_][A-Za-z0-9_]*)(.*)$`)

	errorSummaryRe = regexp.MustCompile(`^\*{4}\s+(\d+)\s+ERROR\(S\)\s+(\d+)\s+WARNING\(S\)`)
	statusRe       = regexp.MustCompile(`^\*{4}\s+(SOLVER STATUS|MODEL STATUS|OBJECTIVE VALUE)\s+(.+)$`)
	summaryPairRe  = regexp.MustCompile(`^\s*(MODEL|TYPE|SOLVER)\s+(\S+)\s+(OBJECTIVE|DIRECTION|FROM LINE)\s+(.+)$`)
	summaryStatRe  = regexp.MustCompile(`^\s*(RESOURCE USAGE, LIMIT|ITERATION COUNT, LIMIT|EVALUATION ERRORS)\s+(.+)$`)
)

// columnHeaderWords appear in the column header above solution records.
var columnHeaderWords = map[string]bool{
	"LOWER":    true,
	"LEVEL":    true,
	"UPPER":    true,
	"MARGINAL": true,
	"SCALE":    true,
}

// parser holds the nesting state of a single Parse call.
type parser struct {
	opts       Options
	root       *Node
	section    *Node // Current top-level section, nil before the first header
	summary    *Node // Open solve summary
	entry      *Node // Open symbol entry that records attach to
	recognised int
	skipped    int
}

// Parse converts listing text into a tree of sections and entries.
//
// The returned root is never nil. A *ParseError is returned alongside an
// empty tree when the text is blank or contains no recognisable listing
// structure. Unrecognised lines are skipped. Identical input always yields an
// identical tree.
func Parse(text string, opts Options) (*Node, error) {
	p := &parser{
		opts: opts,
		root: &Node{Kind: KindRoot, Label: "root"},
	}

	if strings.TrimSpace(text) == "" {
		return p.root, &ParseError{Reason: "empty listing"}
	}

	for i, line := range strings.Split(text, "\n") {
		p.parseLine(i+1, strings.TrimRight(line, "\r"))
	}

	if p.recognised == 0 {
		return p.root, &ParseError{Reason: "no listing structure recognised", Skipped: p.skipped}
	}
	return p.root, nil
}

func (p *parser) parseLine(lineNo int, line string) {
	// Page breaks are written as a leading form feed; keep columns relative
	// to the original text.
	offset := 0
	for strings.HasPrefix(line, "\f") {
		line = line[1:]
		offset++
	}

	trimmed := strings.TrimSpace(line)
	if trimmed == "" || pageHeaderRe.MatchString(trimmed) {
		return
	}
	indent := len(line) - len(strings.TrimLeft(line, " \t"))
	col := offset + indent + 1

	header := normalizeHeader(trimmed)
	if isSectionHeader(header) {
		p.section = &Node{Kind: KindSection, Label: header, Line: lineNo, Column: col}
		p.root.Children = append(p.root.Children, p.section)
		p.summary, p.entry = nil, nil
		p.recognised++
		return
	}
	if header == solveSummaryHeader {
		p.summary = &Node{Kind: KindSolveSummary, Label: header, Line: lineNo, Column: col}
		p.attach(p.summary)
		p.entry = nil
		p.recognised++
		return
	}

	if m := errorSummaryRe.FindStringSubmatch(trimmed); m != nil {
		p.attach(&Node{
			Kind:   KindErrorSummary,
			Label:  m[1] + " ERROR(S) " + m[2] + " WARNING(S)",
			Line:   lineNo,
			Column: col,
		})
		p.recognised++
		return
	}

	if p.summary != nil && p.parseSummaryLine(lineNo, line, offset) {
		p.recognised++
		return
	}

	if p.parseEntry(lineNo, line, offset) {
		p.recognised++
		return
	}

	if p.opts.ParseValues && p.entry != nil && p.parseRecord(lineNo, line, offset) {
		p.recognised++
		return
	}

	p.skipped++
}

// parseSummaryLine handles status lines inside a solve summary.
func (p *parser) parseSummaryLine(lineNo int, line string, offset int) bool {
	if m := statusRe.FindStringSubmatchIndex(line); m != nil {
		p.addStatus(line[m[2]:m[3]], line[m[4]:m[5]], lineNo, offset+m[2]+1)
		return true
	}
	if m := summaryPairRe.FindStringSubmatchIndex(line); m != nil {
		p.addStatus(line[m[2]:m[3]], line[m[4]:m[5]], lineNo, offset+m[2]+1)
		p.addStatus(line[m[6]:m[7]], line[m[8]:m[9]], lineNo, offset+m[6]+1)
		return true
	}
	if m := summaryStatRe.FindStringSubmatchIndex(line); m != nil {
		p.addStatus(line[m[2]:m[3]], line[m[4]:m[5]], lineNo, offset+m[2]+1)
		return true
	}
	return false
}

func (p *parser) addStatus(label, value string, lineNo, col int) {
	node := &Node{Kind: KindStatus, Label: label, Line: lineNo, Column: col}
	if p.opts.ParseValues {
		node.Value = collapseSpaces(value)
	}
	p.summary.Children = append(p.summary.Children, node)
}

// parseEntry recognises the line forms that open a symbol entry.
func (p *parser) parseEntry(lineNo int, line string, offset int) bool {
	var (
		kind NodeKind
		m    []int
	)

	// m holds keyword, name and rest group bounds.
	if full := solutionEntryRe.FindStringSubmatchIndex(line); full != nil {
		m = full[2:]
		kind = KindVariable
		if line[m[0]:m[1]] == "EQU" {
			kind = KindEquation
		}
	} else if full := displayEntryRe.FindStringSubmatchIndex(line); full != nil {
		m = full[2:]
		kind = displayKind(line[m[0]:m[1]])
	} else if full := declarationRe.FindStringSubmatchIndex(line); full != nil {
		m = full[2:]
		kind = displayKind(strings.TrimSuffix(line[m[0]:m[1]], "S"))
	}

	switch {
	case m != nil:
	case p.section != nil && plainEntryRe.MatchString(line):
		switch {
		case strings.HasPrefix(p.section.Label, "Equation Listing"):
			kind = KindEquation
		case strings.HasPrefix(p.section.Label, "Column Listing"):
			kind = KindVariable
		default:
			return false
		}
		full := plainEntryRe.FindStringSubmatchIndex(line)
		// Align with the keyword-carrying forms: keyword group left empty.
		m = []int{full[2], full[2], full[2], full[3], full[4], full[5]}
	default:
		return false
	}

	node := &Node{
		Kind:   kind,
		Label:  line[m[2]:m[3]],
		Line:   lineNo,
		Column: offset + m[2] + 1,
	}
	if p.opts.ParseValues {
		node.Value = collapseSpaces(line[m[4]:m[5]])
	}

	p.summary = nil
	p.attach(node)
	p.entry = node
	return true
}

// parseRecord attaches a value row to the open entry.
func (p *parser) parseRecord(lineNo int, line string, offset int) bool {
	trimmed := strings.TrimSpace(line)
	if strings.HasPrefix(trimmed, "----") || strings.HasPrefix(trimmed, "****") {
		return false
	}

	fields := strings.Fields(trimmed)
	if len(fields) < 2 || isColumnHeader(fields) || !isNumberToken(fields[len(fields)-1]) {
		return false
	}

	p.entry.Children = append(p.entry.Children, &Node{
		Kind:   KindRecord,
		Label:  fields[0],
		Value:  strings.Join(fields[1:], " "),
		Line:   lineNo,
		Column: offset + strings.Index(line, fields[0]) + 1,
	})
	return true
}

// attach adds node under the current section, or the root before the first
// section header.
func (p *parser) attach(node *Node) {
	if p.section != nil {
		p.section.Children = append(p.section.Children, node)
		return
	}
	p.root.Children = append(p.root.Children, node)
}

func displayKind(keyword string) NodeKind {
	switch keyword {
	case "EQUATION":
		return KindEquation
	case "VARIABLE":
		return KindVariable
	case "PARAMETER", "SCALAR":
		return KindParameter
	case "SET":
		return KindSet
	default:
		return KindSymbol
	}
}

// normalizeHeader collapses spaced-out titles ("C o m p i l a t i o n")
// and runs of blanks so headers can be compared by prefix.
func normalizeHeader(trimmed string) string {
	parts := multiSpaceRe.Split(trimmed, -1)
	for i, part := range parts {
		if spacedLettersRe.MatchString(part) {
			parts[i] = strings.ReplaceAll(part, " ", "")
		}
	}
	return strings.Join(parts, " ")
}

func isSectionHeader(header string) bool {
	for _, h := range sectionHeaders {
		if header == h || strings.HasPrefix(header, h+" ") {
			return true
		}
	}
	return false
}

func isColumnHeader(fields []string) bool {
	for _, f := range fields {
		if !columnHeaderWords[f] {
			return false
		}
	}
	return true
}

// isNumberToken reports whether s is a value GAMS prints in a numeric column.
func isNumberToken(s string) bool {
	switch s {
	case ".", "EPS", "+INF", "-INF", "INF", "UNDF", "NA":
		return true
	}
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

package directive

import (
	"bufio"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	directivePrefix = "//coverage:"
	memoSize        = 512
)

// Parser reads directives from source files found by a SourceFileLocator.
// Results are memoised per source path.
type Parser struct {
	locator        SourceFileLocator
	requireComment bool
	memo           *lru.Cache[string, []int]
}

func NewParser(locator SourceFileLocator, requireComment bool) *Parser {
	memo, _ := lru.New[string, []int](memoSize) // fails only for a non-positive size
	return &Parser{locator: locator, requireComment: requireComment, memo: memo}
}

func (p *Parser) RequireComment() bool { return p.requireComment }

// Directives returns the sorted 1-based lines of packageName/sourceFile that
// directives exclude. A source file the locator cannot find has none.
func (p *Parser) Directives(packageName, sourceFile string) ([]int, error) {
	key := path.Join(packageName, sourceFile)
	if p.memo != nil {
		if lines, ok := p.memo.Get(key); ok {
			return append([]int(nil), lines...), nil
		}
	}
	var lines []int
	if p.locator != nil {
		rc, err := p.locator.OpenSourceFile(packageName, sourceFile)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", key, err)
		}
		if rc != nil {
			lines, err = ParseLines(rc, p.requireComment)
			rc.Close()
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", key, err)
			}
		}
	}
	if p.memo != nil {
		p.memo.Add(key, lines)
	}
	return append([]int(nil), lines...), nil
}

// ParseLines scans source text and returns the excluded lines.
func ParseLines(r io.Reader, requireComment bool) ([]int, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	excluded := map[int]struct{}{}
	offSince := 0 // line of the open //coverage:off, 0 when none is open
	line := 0
	for sc.Scan() {
		line++
		verb, ok := parseDirective(sc.Text(), requireComment)
		if !ok {
			if offSince > 0 {
				excluded[line] = struct{}{}
			}
			continue
		}
		switch verb {
		case "off":
			if offSince == 0 {
				offSince = line
			}
			excluded[line] = struct{}{}
		case "on":
			if offSince > 0 {
				excluded[line] = struct{}{}
				offSince = 0
			}
		case "ignore":
			excluded[line] = struct{}{}
			excluded[line+1] = struct{}{}
		default:
			if offSince > 0 {
				excluded[line] = struct{}{}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	out := make([]int, 0, len(excluded))
	for l := range excluded {
		// An ignore on the last line must not point past the end of the file.
		if l <= line {
			out = append(out, l)
		}
	}
	sort.Ints(out)
	return out, nil
}

// parseDirective extracts the verb of a directive comment on a source line.
// The directive must open the line's comment. With requireComment set,
// directives lacking a " - reason" are not reported.
func parseDirective(text string, requireComment bool) (string, bool) {
	idx := lineComment(text)
	if idx < 0 || !strings.HasPrefix(text[idx:], directivePrefix) {
		return "", false
	}
	rest := strings.TrimSpace(text[idx+len(directivePrefix):])
	verb, reason := rest, ""
	if i := strings.IndexAny(rest, " \t"); i >= 0 {
		verb, reason = rest[:i], strings.TrimSpace(rest[i:])
	}
	if verb == "" {
		return "", false
	}
	hasComment := false
	if strings.HasPrefix(reason, "-") {
		hasComment = strings.TrimSpace(strings.TrimPrefix(reason, "-")) != ""
	}
	if requireComment && !hasComment {
		return "", false
	}
	return strings.ToLower(verb), true
}

// lineComment returns the offset of the "//" starting text's line comment,
// or -1. Slashes inside string and character literals do not count.
func lineComment(text string) int {
	var quote byte
	for i := 0; i < len(text); i++ {
		c := text[i]
		switch {
		case quote != 0:
			if c == '\\' {
				i++
			} else if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '/' && i+1 < len(text) && text[i+1] == '/':
			return i
		}
	}
	return -1
}

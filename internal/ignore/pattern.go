package ignore

import (
	"regexp"
	"strings"
)

// rule is one compiled ignore pattern.
type rule struct {
	re       *regexp.Regexp
	original string
	negate   bool // pattern started with !
	dirOnly  bool // pattern ended with /
}

// compile converts one gitignore pattern into a rule.
func compile(pattern string) (rule, error) {
	r := rule{original: pattern}

	if strings.HasPrefix(pattern, "!") {
		r.negate = true
		pattern = strings.TrimPrefix(pattern, "!")
	}

	// Trailing / means directory-only.
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	// Leading / anchors to the root; so does any interior /.
	anchored := false
	if strings.HasPrefix(pattern, "/") {
		anchored = true
		pattern = strings.TrimPrefix(pattern, "/")
	} else if strings.Contains(pattern, "/") {
		anchored = true
	}

	reStr := globToRegex(pattern)
	if anchored {
		reStr = "^" + reStr + "$"
	} else {
		// Match against the basename at any depth.
		reStr = "(^|/)" + reStr + "$"
	}

	re, err := regexp.Compile(reStr)
	if err != nil {
		return rule{}, err
	}
	r.re = re
	return r, nil
}

// match tests one slash-separated relative path against this rule.
func (r rule) match(rel string, isDir bool) bool {
	if r.dirOnly && !isDir {
		return false
	}
	return r.re.MatchString(rel)
}

// globToRegex converts a gitignore glob to a regex string.
func globToRegex(pattern string) string {
	var b strings.Builder
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				// ** matches anything including /
				if i+2 < len(pattern) && pattern[i+2] == '/' {
					b.WriteString("(.*/)?")
					i += 3
				} else {
					b.WriteString(".*")
					i += 2
				}
			} else {
				// * matches anything except /
				b.WriteString("[^/]*")
				i++
			}
		case '?':
			b.WriteString("[^/]")
			i++
		case '[':
			// Character class passes through to the regex.
			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j < len(pattern) {
				cls := pattern[i+1 : j]
				if strings.HasPrefix(cls, "!") {
					cls = "^" + cls[1:]
				}
				b.WriteString("[" + cls + "]")
				i = j + 1
			} else {
				b.WriteString(regexp.QuoteMeta(string(c)))
				i++
			}
		case '.', '(', ')', '+', '{', '}', '^', '$', '|', '\\':
			b.WriteString(regexp.QuoteMeta(string(c)))
			i++
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

package matching

import (
	"net/url"
	"strings"
)

// MatchPath checks if the request path matches the template and returns the
// captured parameters. The score is 0 when the path does not match.
// Supports:
//   - Exact match: "/api/users" matches "/api/users"
//   - Named params: "/api/users/{id}" matches "/api/users/123"
//   - Params inside a segment: "/files/{name}.{ext}" matches "/files/a.txt"
func MatchPath(template, path string) (int, map[string]string) {
	if template == path {
		return ScorePathExact, map[string]string{}
	}
	if !strings.Contains(template, "{") {
		return 0, nil
	}

	tparts := splitPath(template)
	pparts := splitPath(path)
	if len(tparts) != len(pparts) {
		return 0, nil
	}

	params := make(map[string]string)
	score := ScorePathNamedParams
	for i, tp := range tparts {
		if !strings.Contains(tp, "{") {
			if tp != pparts[i] {
				return 0, nil
			}
			score += ScoreLiteralSegment
			continue
		}
		if !matchSegment(tp, pparts[i], params) {
			return 0, nil
		}
	}
	return score, params
}

func splitPath(p string) []string {
	return strings.Split(strings.Trim(p, "/"), "/")
}

// matchSegment matches one template segment such as "{id}" or
// "{name}.{ext}" against a path segment. Each parameter captures a non-empty
// run up to the next literal.
func matchSegment(tmpl, seg string, params map[string]string) bool {
	for tmpl != "" {
		open := strings.IndexByte(tmpl, '{')
		if open < 0 {
			return tmpl == seg
		}
		if !strings.HasPrefix(seg, tmpl[:open]) {
			return false
		}
		seg = seg[open:]
		closing := strings.IndexByte(tmpl, '}')
		if closing < open {
			return false
		}
		name := tmpl[open+1 : closing]
		tmpl = tmpl[closing+1:]

		// The parameter runs to the next literal, or to the end.
		next := tmpl
		if i := strings.IndexByte(next, '{'); i >= 0 {
			next = next[:i]
		}
		end := len(seg)
		if next != "" {
			end = strings.Index(seg, next)
			if tmpl == next {
				end = strings.LastIndex(seg, next)
			}
		}
		if end <= 0 {
			return false
		}
		value := seg[:end]
		if unescaped, err := url.PathUnescape(value); err == nil {
			value = unescaped
		}
		params[name] = value
		seg = seg[end:]
	}
	return seg == ""
}

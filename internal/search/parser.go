// Package search implements the bot's query parser, permission/privacy
// pipeline, result rendering, and paginated auto-delete scheduling
// (§4.4, §4.5). Grounded on the teacher's internal/domain/filters for
// the shape of a composable parse/match layer, and on
// internal/concurrency.Debouncer for the auto-delete cancel-and-
// reschedule pattern.
package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ZhiShengYuan/SearchGram/internal/document"
)

// MaxPage bounds how deep into results a user may page (§4.4).
const MaxPage = 100

// DefaultPageSize is the fixed page size sent to the search engine.
const DefaultPageSize = 10

// Mode distinguishes fuzzy vs. exact-match search.
type Mode string

const (
	ModeFuzzy Mode = "fuzzy"
	ModeExact Mode = "exact"
)

// Query is a fully parsed search invocation.
type Query struct {
	Keyword    string
	ChatType   document.ChatType
	UserFilter string
	Mode       Mode
	Page       int
}

// ErrInvalidPage is returned when the parsed page is out of [1, MaxPage].
type ErrInvalidPage struct {
	Page int
}

func (e *ErrInvalidPage) Error() string {
	return fmt.Sprintf("page must be between 1 and %d, got %d", MaxPage, e.Page)
}

var chatTypeAliases = map[string]document.ChatType{
	"bot":        document.ChatBot,
	"channel":    document.ChatChannel,
	"group":      document.ChatGroup,
	"private":    document.ChatPrivate,
	"supergroup": document.ChatSupergroup,
}

// ParseCommand parses the text of a /search or /<chattype> invocation.
// It does not look at which chat the invocation came from.
func ParseCommand(text string) (Query, error) {
	fields := tokenize(strings.TrimSpace(text))
	q := Query{Mode: ModeFuzzy, Page: 1}

	var kept []string
	for _, f := range fields {
		switch {
		case strings.HasPrefix(f, "-m="):
			if strings.EqualFold(strings.TrimPrefix(f, "-m="), "e") {
				q.Mode = ModeExact
			}
		case strings.HasPrefix(f, "-t="):
			ct, ok := chatTypeAliases[strings.ToLower(strings.TrimPrefix(f, "-t="))]
			if ok {
				q.ChatType = ct
			}
		case strings.HasPrefix(f, "-u="):
			q.UserFilter = strings.TrimPrefix(f, "-u=")
		case isPageFlag(f):
			p, _ := strconv.Atoi(strings.TrimPrefix(f, "-p="))
			q.Page = p
		default:
			kept = append(kept, f)
		}
	}

	keyword := strings.Join(kept, " ")
	if quoted, ok := stripQuotes(keyword); ok {
		q.Mode = ModeExact
		keyword = quoted
	}
	q.Keyword = strings.TrimSpace(keyword)

	if q.Page < 1 || q.Page > MaxPage {
		return Query{}, &ErrInvalidPage{Page: q.Page}
	}
	return q, nil
}

// ParseChatTypeShortcut rewrites "/<chattype> [user] <kw>" into the
// equivalent -t=/-u= form before handing off to ParseCommand (§4.4).
func ParseChatTypeShortcut(command string, rest string) (Query, bool) {
	ct, ok := chatTypeAliases[strings.ToLower(command)]
	if !ok {
		return Query{}, false
	}

	fields := tokenize(strings.TrimSpace(rest))
	rewritten := "-t=" + string(ct)
	if len(fields) > 0 && looksLikeUserRef(fields[0]) {
		rewritten += " -u=" + fields[0]
		fields = fields[1:]
	}
	rewritten += " " + strings.Join(fields, " ")

	q, err := ParseCommand(rewritten)
	if err != nil {
		return Query{}, false
	}
	return q, true
}

func looksLikeUserRef(s string) bool {
	if strings.HasPrefix(s, "@") {
		return true
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return true
	}
	return false
}

func isPageFlag(f string) bool {
	return strings.HasPrefix(f, "-p=")
}

// tokenize splits on whitespace but keeps double-quoted spans intact as
// a single field (so `"quoted text"` survives as one token for
// stripQuotes to detect).
func tokenize(s string) []string {
	var out []string
	var cur strings.Builder
	inQuotes := false

	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}

	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case r == ' ' && !inQuotes:
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

func stripQuotes(s string) (string, bool) {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1], true
	}
	return s, false
}

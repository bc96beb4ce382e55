// Package pagerange parses page range expressions such as "1-3,5,7-9"
// into sorted sets of 1-based page numbers.
package pagerange

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrInvalidRangeSyntax = errors.New("invalid range syntax")
	ErrRangeOutOfBounds   = errors.New("range out of bounds")
	ErrInvalidPageNumber  = errors.New("invalid page number")
	ErrPageOutOfBounds    = errors.New("page out of bounds")
)

// Error describes which token of an expression was rejected and why.
// Kind is one of the Err* sentinels above, so callers can use errors.Is.
type Error struct {
	Kind    error
	Token   string
	MaxPage int
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrRangeOutOfBounds:
		return fmt.Sprintf("%v: %q (max %d)", e.Kind, e.Token, e.MaxPage)
	case ErrPageOutOfBounds:
		return fmt.Sprintf("%v: %q (1..%d)", e.Kind, e.Token, e.MaxPage)
	default:
		return fmt.Sprintf("%v: %q", e.Kind, e.Token)
	}
}

func (e *Error) Unwrap() error { return e.Kind }

// Parse turns expr into an ascending, duplicate-free list of page numbers
// within [1, maxPage]. A blank expression yields an empty list.
func Parse(expr string, maxPage int) ([]int, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}

	seen := make(map[int]struct{})
	for _, part := range strings.Split(expr, ",") {
		part = strings.TrimSpace(part)

		if startStr, endStr, ok := strings.Cut(part, "-"); ok {
			start, err1 := strconv.Atoi(strings.TrimSpace(startStr))
			end, err2 := strconv.Atoi(strings.TrimSpace(endStr))
			if err1 != nil || err2 != nil {
				return nil, &Error{Kind: ErrInvalidRangeSyntax, Token: part, MaxPage: maxPage}
			}
			if start < 1 || end < 1 || start > maxPage || end > maxPage || start > end {
				return nil, &Error{Kind: ErrRangeOutOfBounds, Token: part, MaxPage: maxPage}
			}
			for p := start; p <= end; p++ {
				seen[p] = struct{}{}
			}
			continue
		}

		p, err := strconv.Atoi(part)
		if err != nil {
			return nil, &Error{Kind: ErrInvalidPageNumber, Token: part, MaxPage: maxPage}
		}
		if p < 1 || p > maxPage {
			return nil, &Error{Kind: ErrPageOutOfBounds, Token: part, MaxPage: maxPage}
		}
		seen[p] = struct{}{}
	}

	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages, nil
}

// Format renders an ascending page list back into range syntax,
// collapsing consecutive runs: [1 2 3 5] -> "1-3,5".
func Format(pages []int) string {
	var b strings.Builder
	for i := 0; i < len(pages); {
		j := i
		for j+1 < len(pages) && pages[j+1] == pages[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(pages[i]))
		if j > i {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(pages[j]))
		}
		i = j + 1
	}
	return b.String()
}

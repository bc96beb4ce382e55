// Package selection turns a page count and a selection mode into ordered
// output groups of page references.
package selection

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects how pages are grouped into output documents.
type Mode string

const (
	EachPage      Mode = "each_page"
	CustomRanges  Mode = "custom_ranges"
	EveryN        Mode = "every_n"
	OddEven       Mode = "odd_even"
	MergeAll      Mode = "merge_all"
	MergeMultiple Mode = "merge_multiple"
)

// Modes lists every supported mode in presentation order.
var Modes = []Mode{EachPage, CustomRanges, EveryN, OddEven, MergeAll, MergeMultiple}

// OddEvenChoice picks which parity groups OddEven mode emits.
type OddEvenChoice string

const (
	Odd  OddEvenChoice = "odd"
	Even OddEvenChoice = "even"
	Both OddEvenChoice = "both"
)

var (
	ErrUnknownMode        = errors.New("unknown selection mode")
	ErrInvalidChunkSize   = errors.New("chunk size must be a positive integer")
	ErrInvalidOddEven     = errors.New("odd/even choice must be odd, even or both")
	ErrInsufficientInputs = errors.New("merging requires at least 2 documents")
	ErrDocumentCount      = errors.New("mode requires exactly one document")
)

// PageRef addresses one page: Doc is the document's position in upload
// order, Index the 0-based page index inside it.
type PageRef struct {
	Doc   int
	Index int
}

// Group is one future output document.
type Group struct {
	Label string
	Pages []PageRef
}

// ParseMode accepts mode names case-insensitively, with '-' or '_'.
func ParseMode(s string) (Mode, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	for _, m := range Modes {
		if string(m) == norm {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// ParseOddEven accepts odd, even or both, case-insensitively.
func ParseOddEven(s string) (OddEvenChoice, error) {
	switch c := OddEvenChoice(strings.ToLower(strings.TrimSpace(s))); c {
	case Odd, Even, Both:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOddEven, s)
}

// Request carries everything Select needs. Pages is the parsed range set
// for CustomRanges; PageCounts holds one entry per document in upload order.
type Request struct {
	Mode       Mode
	Pages      []int
	ChunkSize  int
	OddEven    OddEvenChoice
	PageCounts []int
}

// Select dispatches on r.Mode.
func Select(r Request) ([]Group, error) {
	if r.Mode == MergeMultiple {
		return SelectMergeMultiple(r.PageCounts)
	}
	if len(r.PageCounts) != 1 {
		return nil, fmt.Errorf("%w: %s got %d", ErrDocumentCount, r.Mode, len(r.PageCounts))
	}
	pageCount := r.PageCounts[0]

	switch r.Mode {
	case EachPage:
		return SelectEachPage(pageCount), nil
	case CustomRanges:
		return SelectCustomRanges(r.Pages), nil
	case EveryN:
		return SelectEveryN(r.ChunkSize, pageCount)
	case OddEven:
		return SelectOddEven(r.OddEven, pageCount)
	case MergeAll:
		return SelectMergeAll(pageCount), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, r.Mode)
	}
}

// SelectEachPage emits one single-page group per page, labelled page_N.
func SelectEachPage(pageCount int) []Group {
	groups := make([]Group, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		groups = append(groups, Group{
			Label: fmt.Sprintf("page_%d", i+1),
			Pages: []PageRef{{Index: i}},
		})
	}
	return groups
}

// SelectCustomRanges groups maximal runs of consecutive page numbers.
// pages must be ascending and unique, as returned by pagerange.Parse.
func SelectCustomRanges(pages []int) []Group {
	var groups []Group
	for i := 0; i < len(pages); {
		j := i
		for j+1 < len(pages) && pages[j+1] == pages[j]+1 {
			j++
		}
		start, end := pages[i], pages[j]

		label := fmt.Sprintf("pages_%d", start)
		if end != start {
			label = fmt.Sprintf("pages_%d-%d", start, end)
		}
		refs := make([]PageRef, 0, end-start+1)
		for p := start; p <= end; p++ {
			refs = append(refs, PageRef{Index: p - 1})
		}
		groups = append(groups, Group{Label: label, Pages: refs})
		i = j + 1
	}
	return groups
}

// SelectEveryN partitions the document into chunks of n pages; the last
// chunk may be shorter.
func SelectEveryN(n, pageCount int) ([]Group, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, n)
	}
	var groups []Group
	for start, part := 0, 1; start < pageCount; start, part = start+n, part+1 {
		end := min(start+n, pageCount)
		refs := make([]PageRef, 0, end-start)
		for i := start; i < end; i++ {
			refs = append(refs, PageRef{Index: i})
		}
		groups = append(groups, Group{Label: fmt.Sprintf("part_%d", part), Pages: refs})
	}
	return groups, nil
}

// SelectOddEven classifies pages by 1-based parity. With Both the odd group
// comes first. A parity with no pages produces no group.
func SelectOddEven(choice OddEvenChoice, pageCount int) ([]Group, error) {
	switch choice {
	case Odd, Even, Both:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidOddEven, choice)
	}

	var odd, even []PageRef
	for i := 0; i < pageCount; i++ {
		if (i+1)%2 == 1 {
			odd = append(odd, PageRef{Index: i})
		} else {
			even = append(even, PageRef{Index: i})
		}
	}

	var groups []Group
	if (choice == Odd || choice == Both) && len(odd) > 0 {
		groups = append(groups, Group{Label: "odd_pages", Pages: odd})
	}
	if (choice == Even || choice == Both) && len(even) > 0 {
		groups = append(groups, Group{Label: "even_pages", Pages: even})
	}
	return groups, nil
}

// SelectMergeAll emits the whole document as one group.
func SelectMergeAll(pageCount int) []Group {
	refs := make([]PageRef, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		refs = append(refs, PageRef{Index: i})
	}
	return []Group{{Label: "merged_all", Pages: refs}}
}

// SelectMergeMultiple concatenates every page of every document, document
// by document in upload order.
func SelectMergeMultiple(pageCounts []int) ([]Group, error) {
	if len(pageCounts) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrInsufficientInputs, len(pageCounts))
	}
	var refs []PageRef
	for doc, n := range pageCounts {
		for i := 0; i < n; i++ {
			refs = append(refs, PageRef{Doc: doc, Index: i})
		}
	}
	return []Group{{Label: "merged_files", Pages: refs}}, nil
}

package longdoc

import (
	"sort"
	"strings"

	"github.com/turtacn/KeyIP-LongDoc/pkg/types/common"
	"github.com/turtacn/KeyIP-LongDoc/pkg/types/document"
)

// charsPerToken seeds the fallback window: a budget of N tokens is first
// tried as N*4 characters.
const charsPerToken = 4

// SegmentBuilder turns sections into budget-sized segments.
type SegmentBuilder struct {
	estimator TokenEstimator
	newID     func() string
}

// NewSegmentBuilder returns a builder using est; nil selects
// HeuristicEstimator.
func NewSegmentBuilder(est TokenEstimator) *SegmentBuilder {
	if est == nil {
		est = HeuristicEstimator{}
	}
	return &SegmentBuilder{
		estimator: est,
		newID:     func() string { return common.GenerateID("seg") },
	}
}

// BuildSegments splits text into segments of at most budget tokens.
//
//   - text that fits the budget becomes a single segment;
//   - otherwise normalized sections are packed greedily in order, never split;
//     a section larger than the budget becomes its own segment flagged
//     metadata.oversized;
//   - with no usable sections the text is cut into the longest chunks the
//     estimator keeps within budget.
//
// The returned segments are contiguous and cover [0, len(text)).
func (b *SegmentBuilder) BuildSegments(text string, budget int, sections []Section) []document.DocumentSegment {
	if text == "" {
		return nil
	}
	if budget <= 0 {
		budget = document.DefaultMaxTokensPerSegment
	}

	var segments []document.DocumentSegment
	total := b.estimator.Estimate(text)
	norm := NormalizeSections(sections, len(text))

	switch {
	case total <= budget:
		segType := document.SegmentOther
		if len(norm) == 1 && norm[0].StartIndex == 0 && norm[0].EndIndex == len(text) {
			segType = norm[0].Type
		}
		seg := b.newSegment(text, 0, len(text), segType)
		seg.TokenCount = total
		segments = append(segments, seg)
	case len(norm) == 0:
		segments = b.chunk(text, 0, len(text), budget)
	default:
		segments = b.pack(text, norm, budget)
		if tail := norm[len(norm)-1].EndIndex; tail < len(text) {
			if strings.TrimSpace(text[tail:]) == "" {
				last := &segments[len(segments)-1]
				last.EndIndex = len(text)
				last.Content = text[last.StartIndex:last.EndIndex]
				last.TokenCount = b.estimator.Estimate(last.Content)
			} else {
				// sections only describe the analysed prefix
				segments = append(segments, b.chunk(text, tail, len(text), budget)...)
			}
		}
	}

	for i := range segments {
		segments[i].Metadata[document.MetaIndex] = i
	}
	return segments
}

func (b *SegmentBuilder) pack(text string, sections []Section, budget int) []document.DocumentSegment {
	var (
		out       []document.DocumentSegment
		buf       []Section
		bufTokens int
	)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		seg := b.newSegment(text, buf[0].StartIndex, buf[len(buf)-1].EndIndex, buf[0].Type)
		seg.Metadata[document.MetaSections] = sectionLabels(buf)
		out = append(out, seg)
		buf, bufTokens = nil, 0
	}

	for _, s := range sections {
		tokens := b.estimator.Estimate(text[s.StartIndex:s.EndIndex])
		if tokens > budget {
			flush()
			seg := b.newSegment(text, s.StartIndex, s.EndIndex, s.Type)
			seg.Metadata[document.MetaSections] = sectionLabels([]Section{s})
			seg.Metadata[document.MetaOversized] = true
			out = append(out, seg)
			continue
		}
		if len(buf) > 0 && bufTokens+tokens > budget {
			flush()
		}
		buf = append(buf, s)
		bufTokens += tokens
	}
	flush()
	return out
}

// chunk cuts text[start:end] into windows of at most budget tokens as
// counted by the estimator.  Each window starts from a guess of budget*4
// characters and is then shrunk or grown to the largest rune count that fits.
// A window always holds at least one rune.
func (b *SegmentBuilder) chunk(text string, start, end, budget int) []document.DocumentSegment {
	offsets := make([]int, 0, end-start+1)
	for i := range text[start:end] {
		offsets = append(offsets, start+i)
	}
	offsets = append(offsets, end)
	runes := len(offsets) - 1

	var out []document.DocumentSegment
	for first := 0; first < runes; {
		fits := func(n int) bool {
			return b.estimator.Estimate(text[offsets[first]:offsets[first+n]]) <= budget
		}
		n := largestFit(min(budget*charsPerToken, runes-first), runes-first, fits)
		out = append(out, b.fallbackSegment(text, offsets[first], offsets[first+n]))
		first += n
	}
	return out
}

// largestFit returns the largest n in [1, limit] with fits(n), assuming fits
// is monotone.  guess seeds the search; 1 is returned when nothing fits.
func largestFit(guess, limit int, fits func(int) bool) int {
	guess = max(guess, 1)
	lo, hi := 0, limit+1 // fits(lo) holds, fits(hi) does not
	if fits(guess) {
		lo = guess
		for step := guess; lo < limit; step *= 2 {
			next := min(lo+step, limit)
			if !fits(next) {
				hi = next
				break
			}
			lo = next
		}
	} else {
		hi = guess
	}
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		if fits(mid) {
			lo = mid
		} else {
			hi = mid
		}
	}
	return max(lo, 1)
}

func (b *SegmentBuilder) fallbackSegment(text string, start, end int) document.DocumentSegment {
	seg := b.newSegment(text, start, end, document.SegmentOther)
	seg.Metadata[document.MetaFallback] = true
	return seg
}

func (b *SegmentBuilder) newSegment(text string, start, end int, t document.SegmentType) document.DocumentSegment {
	content := text[start:end]
	return document.DocumentSegment{
		ID:         b.newID(),
		Type:       t,
		Content:    content,
		StartIndex: start,
		EndIndex:   end,
		TokenCount: b.estimator.Estimate(content),
		Metadata:   common.Metadata{},
	}
}

func sectionLabels(sections []Section) []string {
	labels := make([]string, 0, len(sections))
	for _, s := range sections {
		if s.Title != "" {
			labels = append(labels, s.Title)
		} else {
			labels = append(labels, string(s.Type))
		}
	}
	return labels
}

// NormalizeSections makes model-reported sections safe to slice with:
// offsets are clamped to [0, n), sections sorted by start, overlaps trimmed
// and empty sections dropped.  A gap before the first section becomes a
// header section; gaps between sections are absorbed by the preceding one.
// The result covers [0, last end) without holes.
func NormalizeSections(sections []Section, n int) []Section {
	if len(sections) == 0 || n <= 0 {
		return nil
	}

	clamped := make([]Section, 0, len(sections))
	for _, s := range sections {
		s.StartIndex = clamp(s.StartIndex, 0, n)
		s.EndIndex = clamp(s.EndIndex, 0, n)
		if s.EndIndex <= s.StartIndex {
			continue
		}
		if !s.Type.IsValid() {
			s.Type = document.ParseSegmentType(string(s.Type))
		}
		clamped = append(clamped, s)
	}
	sort.SliceStable(clamped, func(i, j int) bool {
		if clamped[i].StartIndex != clamped[j].StartIndex {
			return clamped[i].StartIndex < clamped[j].StartIndex
		}
		return clamped[i].EndIndex > clamped[j].EndIndex
	})

	out := make([]Section, 0, len(clamped))
	pos := 0
	for _, s := range clamped {
		if s.StartIndex < pos {
			s.StartIndex = pos
		}
		if s.EndIndex <= s.StartIndex {
			continue
		}
		if s.StartIndex > pos {
			if len(out) == 0 {
				out = append(out, Section{Type: document.SegmentHeader, StartIndex: 0, EndIndex: s.StartIndex})
			} else {
				out[len(out)-1].EndIndex = s.StartIndex
			}
		}
		out = append(out, s)
		pos = s.EndIndex
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

//Personal.AI order the ending

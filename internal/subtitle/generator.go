package subtitle

import (
	"strings"
	"unicode/utf8"
)

// turns transcription segments into draft entries, splitting long ones
type Generator struct {
	MaxChars    int
	MinDuration float64
	MaxDuration float64
}

func NewDefaultGenerator() *Generator {
	return &Generator{
		MaxChars:    84, // two 42-char lines, flattened to one
		MinDuration: 1,
		MaxDuration: 7,
	}
}

// converts transcription segments to entries
func (g *Generator) Generate(segments []Segment) []Entry {
	entries := make([]Entry, 0, len(segments))

	for _, seg := range segments {
		text := NormalizeText(seg.Text)
		if text == "" || seg.EndTime <= seg.BeginTime {
			continue
		}

		if g.needsSplit(text, seg.EndTime-seg.BeginTime) {
			entries = append(entries, g.splitSegment(seg, text)...)
			continue
		}

		entries = append(entries, Entry{
			BeginTime: seg.BeginTime,
			EndTime:   g.stretch(seg.BeginTime, seg.EndTime),
			Text:      text,
		})
	}

	return entries
}

func (g *Generator) needsSplit(text string, duration float64) bool {
	return utf8.RuneCountInString(text) > g.MaxChars || duration > g.MaxDuration
}

// extends very short cues up to MinDuration
func (g *Generator) stretch(begin, end float64) float64 {
	if end-begin < g.MinDuration {
		return begin + g.MinDuration
	}
	return end
}

// splits long segment into multiple entries
func (g *Generator) splitSegment(seg Segment, text string) []Entry {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	total := seg.EndTime - seg.BeginTime

	numSplits := (utf8.RuneCountInString(text) + g.MaxChars - 1) / g.MaxChars
	if numSplits < 1 {
		numSplits = 1
	}
	if d := int(total/g.MaxDuration) + 1; d > numSplits {
		numSplits = d
	}
	if numSplits > len(words) {
		numSplits = len(words)
	}

	wordsPerSplit := (len(words) + numSplits - 1) / numSplits
	step := total / float64(numSplits)

	var entries []Entry
	begin := seg.BeginTime

	for i := 0; i < numSplits && len(words) > 0; i++ {
		n := min(wordsPerSplit, len(words))
		chunk := words[:n]
		words = words[n:]

		end := begin + step
		// last split ends at the original end time
		if len(words) == 0 {
			end = seg.EndTime
		}

		entries = append(entries, Entry{
			BeginTime: begin,
			EndTime:   end,
			Text:      strings.Join(chunk, " "),
		})
		begin = end
	}

	return entries
}

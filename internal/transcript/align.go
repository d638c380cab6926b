package transcript

import "math"

// Align merges recognition segments with diarization turns into one ordered
// transcript. Each segment is labeled with the speaker whose turn has the
// largest temporal overlap with it; a segment no turn touches keeps an empty
// speaker tag. Ties go to the turn whose start is nearer the segment's
// start, then to the earlier turn.
//
// Both inputs are ordered by start time, so a single two-pointer sweep over
// the turns suffices; no per-segment scan of the whole turn list happens
// even on hours-long recordings. Pure and deterministic: same inputs, same
// output, timing copied through untouched.
func Align(segments []RecognitionSegment, turns []DiarizationTurn) []Segment {
	out := make([]Segment, 0, len(segments))

	j := 0
	for _, seg := range segments {
		// Drop turns that ended before this segment starts. They cannot
		// overlap this segment or any later one.
		for j < len(turns) && turns[j].End <= seg.Start {
			j++
		}

		best := 0.0
		bestDist := math.Inf(1)
		speaker := ""
		for k := j; k < len(turns); k++ {
			turn := turns[k]
			if turn.Start >= seg.End {
				break
			}
			lo := math.Max(seg.Start, turn.Start)
			hi := math.Min(seg.End, turn.End)
			if hi <= lo {
				continue
			}
			overlap := hi - lo
			dist := math.Abs(turn.Start - seg.Start)
			if overlap > best || (overlap == best && dist < bestDist) {
				best = overlap
				bestDist = dist
				speaker = turn.Speaker
			}
		}

		out = append(out, Segment{
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
			Speaker: speaker,
		})
	}

	return out
}

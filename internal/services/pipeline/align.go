package pipeline

import (
	"math"

	"github.com/ai-godfather/rec-conv-transcriptor/internal/services/engines"
)

// overlap returns the length of the intersection of [aStart,aEnd) and
// [bStart,bEnd), or zero when they are disjoint.
func overlap(aStart, aEnd, bStart, bEnd float64) float64 {
	start := math.Max(aStart, bStart)
	end := math.Min(aEnd, bEnd)
	if end <= start {
		return 0
	}
	return end - start
}

// alignSpeakers attributes each transcription segment to the diarization
// speaker whose turns overlap it the most. A segment touching no turn falls
// back to the turn with the nearest midpoint. With no turns at all every
// segment gets an empty label.
func alignSpeakers(segments []engines.TranscriptionSegment, turns []engines.DiarizationTurn) []string {
	labels := make([]string, len(segments))
	if len(turns) == 0 {
		return labels
	}

	for i, seg := range segments {
		bySpeaker := make(map[string]float64)
		for _, turn := range turns {
			if o := overlap(seg.Start, seg.End, turn.Start, turn.End); o > 0 {
				bySpeaker[turn.Speaker] += o
			}
		}

		best, bestOverlap := "", 0.0
		for speaker, total := range bySpeaker {
			if total > bestOverlap || (total == bestOverlap && (best == "" || speaker < best)) {
				best, bestOverlap = speaker, total
			}
		}
		if best == "" {
			best = nearestTurnSpeaker(seg, turns)
		}
		labels[i] = best
	}
	return labels
}

func nearestTurnSpeaker(seg engines.TranscriptionSegment, turns []engines.DiarizationTurn) string {
	mid := (seg.Start + seg.End) / 2
	best, bestDist := "", math.MaxFloat64
	for _, turn := range turns {
		turnMid := (turn.Start + turn.End) / 2
		dist := math.Abs(mid - turnMid)
		if dist < bestDist {
			best, bestDist = turn.Speaker, dist
		}
	}
	return best
}

// Package classifier assigns agent/customer roles to anonymous speaker
// labels. Classification is a pure function of per-label aggregated signals:
// the same input always yields the same assignment, regardless of processing
// order.
package classifier

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ai-godfather/rec-conv-transcriptor/internal/models"
)

// Stats aggregates the classification signals for one speaker label.
type Stats struct {
	Label          string
	Texts          []string // one entry per utterance
	TotalTime      float64  // total speaking time in seconds
	UtteranceCount int
	FirstSeen      float64 // start time of the label's earliest segment
}

// MeanUtterance returns the average utterance duration in seconds.
func (s Stats) MeanUtterance() float64 {
	if s.UtteranceCount == 0 {
		return 0
	}
	return s.TotalTime / float64(s.UtteranceCount)
}

// Weights holds the named tuning constants for the composite score.
type Weights struct {
	Phrase    float64
	TalkTime  float64
	Utterance float64
}

// DefaultWeights favors the phrase signal: scripted language identifies an
// agent even when talk time is close.
func DefaultWeights() Weights {
	return Weights{Phrase: 3.0, TalkTime: 1.0, Utterance: 1.0}
}

// Assignment is the classification result for one recording.
type Assignment struct {
	Roles     map[string]models.SpeakerRole
	Scores    map[string]float64
	Ambiguous bool // label count differed from two
}

// Classifier scores speaker labels against agent-typical signals.
type Classifier struct {
	weights Weights
	logger  *zap.Logger
}

// New creates a classifier with the given weights.
func New(weights Weights, logger *zap.Logger) *Classifier {
	return &Classifier{weights: weights, logger: logger}
}

// Classify assigns roles to the given labels. Only the two-speaker case is
// supported: any other label count yields unknown roles for every label and
// marks the assignment ambiguous rather than guessing.
func (c *Classifier) Classify(stats []Stats) Assignment {
	assignment := Assignment{
		Roles:  make(map[string]models.SpeakerRole, len(stats)),
		Scores: make(map[string]float64, len(stats)),
	}

	if len(stats) != 2 {
		assignment.Ambiguous = true
		for _, s := range stats {
			assignment.Roles[s.Label] = models.RoleUnknown
		}
		c.logger.Warn("ambiguous speaker count, assigning unknown roles",
			zap.Int("labels", len(stats)))
		return assignment
	}

	// Deterministic evaluation order regardless of caller ordering.
	pair := []Stats{stats[0], stats[1]}
	sort.Slice(pair, func(i, j int) bool { return pair[i].Label < pair[j].Label })

	totalTime := pair[0].TotalTime + pair[1].TotalTime
	maxMean := pair[0].MeanUtterance()
	if m := pair[1].MeanUtterance(); m > maxMean {
		maxMean = m
	}

	for _, s := range pair {
		score := c.weights.Phrase*phraseScore(s) +
			c.weights.TalkTime*talkTimeRatio(s, totalTime) +
			c.weights.Utterance*relativeMeanUtterance(s, maxMean)
		assignment.Scores[s.Label] = score
	}

	agent := pickAgent(pair, assignment.Scores)
	for _, s := range pair {
		if s.Label == agent {
			assignment.Roles[s.Label] = models.RoleAgent
		} else {
			assignment.Roles[s.Label] = models.RoleCustomer
		}
	}

	c.logger.Info("speaker roles assigned",
		zap.String("agent", agent),
		zap.Float64("score_0", assignment.Scores[pair[0].Label]),
		zap.Float64("score_1", assignment.Scores[pair[1].Label]))

	return assignment
}

// phraseScore is the normalized agent-language signal in [-1,1]: agent
// phrase hits push positive, acknowledgement-only utterances push negative.
func phraseScore(s Stats) float64 {
	joined := strings.Join(s.Texts, " ")
	agentHits := countMatches(joined, agentPhrases)

	ackHits := 0
	for _, text := range s.Texts {
		if countMatches(strings.TrimSpace(text), ackPhrases) > 0 {
			ackHits++
		}
	}

	total := agentHits + ackHits
	if total == 0 {
		return 0
	}
	return float64(agentHits-ackHits) / float64(total)
}

func talkTimeRatio(s Stats, totalTime float64) float64 {
	if totalTime <= 0 {
		return 0
	}
	return s.TotalTime / totalTime
}

func relativeMeanUtterance(s Stats, maxMean float64) float64 {
	if maxMean <= 0 {
		return 0
	}
	return s.MeanUtterance() / maxMean
}

// pickAgent applies the tie-break chain: composite score, then talk time,
// then earliest first appearance.
func pickAgent(pair []Stats, scores map[string]float64) string {
	a, b := pair[0], pair[1]

	if scores[a.Label] != scores[b.Label] {
		if scores[a.Label] > scores[b.Label] {
			return a.Label
		}
		return b.Label
	}

	if a.TotalTime != b.TotalTime {
		if a.TotalTime > b.TotalTime {
			return a.Label
		}
		return b.Label
	}

	if a.FirstSeen <= b.FirstSeen {
		return a.Label
	}
	return b.Label
}

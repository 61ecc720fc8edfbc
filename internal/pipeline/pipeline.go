// Package pipeline models the six-stage engagement pipeline: stage ordering,
// the advisory transition check and event freshness classification. There is
// no stored "current stage" — display code derives it as the highest stage
// that has at least one event.
package pipeline

import (
	"time"

	"github.com/kindling-crm/be-donor-pipeline/internal/errors"
)

// Stage is one of the six fixed engagement stages.
type Stage string

const (
	StageContact   Stage = "contact"
	StageMeet      Stage = "meet"
	StageClose     Stage = "close"
	StageDecision  Stage = "decision"
	StageThank     Stage = "thank"
	StageNextSteps Stage = "next_steps"
)

// orderedStages holds the stages in pipeline order (contact=1 .. next_steps=6).
var orderedStages = []Stage{
	StageContact,
	StageMeet,
	StageClose,
	StageDecision,
	StageThank,
	StageNextSteps,
}

var stageOrder = map[Stage]int{
	StageContact:   1,
	StageMeet:      2,
	StageClose:     3,
	StageDecision:  4,
	StageThank:     5,
	StageNextSteps: 6,
}

// Stages returns all stages in pipeline order.
func Stages() []Stage {
	out := make([]Stage, len(orderedStages))
	copy(out, orderedStages)
	return out
}

// ParseStage validates a raw stage value.
func ParseStage(raw string) (Stage, error) {
	s := Stage(raw)
	if _, ok := stageOrder[s]; !ok {
		return "", errors.InvalidInput("stage", "must be one of contact, meet, close, decision, thank, next_steps")
	}
	return s, nil
}

// Order returns the 1-based position of the stage, or 0 for unknown stages.
func (s Stage) Order() int {
	return stageOrder[s]
}

// EventType is the action recorded at a stage.
type EventType string

const (
	EventCalled          EventType = "called"
	EventEmailed         EventType = "emailed"
	EventTexted          EventType = "texted"
	EventLetterSent      EventType = "letter_sent"
	EventMet             EventType = "met"
	EventAskMade         EventType = "ask_made"
	EventDecisionLogged  EventType = "decision_logged"
	EventThanked         EventType = "thanked"
	EventNextStepPlanned EventType = "next_step_planned"
	EventNote            EventType = "note"
)

var validEventTypes = map[EventType]bool{
	EventCalled:          true,
	EventEmailed:         true,
	EventTexted:          true,
	EventLetterSent:      true,
	EventMet:             true,
	EventAskMade:         true,
	EventDecisionLogged:  true,
	EventThanked:         true,
	EventNextStepPlanned: true,
	EventNote:            true,
}

// ParseEventType validates a raw event type value.
func ParseEventType(raw string) (EventType, error) {
	et := EventType(raw)
	if !validEventTypes[et] {
		return "", errors.InvalidInput("event_type", "unknown event type")
	}
	return et, nil
}

// TransitionCheck is the advisory classification of a stage move. It never
// authorizes or denies anything; the UI uses it to decide whether to warn.
type TransitionCheck struct {
	Sequential    bool    `json:"sequential"`
	Revisiting    bool    `json:"revisiting,omitempty"`
	SkippedStages []Stage `json:"skipped_stages,omitempty"`
}

// CheckTransition classifies a move to target given the current stage order
// (nil when the contact has no events yet). Moving to the next stage, staying
// on the same stage, or starting fresh is sequential; moving backward is a
// revisit; jumping ahead lists the stages skipped over, in order.
func CheckTransition(currentOrder *int, target Stage) TransitionCheck {
	targetOrder := target.Order()

	if currentOrder == nil || *currentOrder == targetOrder || targetOrder == *currentOrder+1 {
		return TransitionCheck{Sequential: true}
	}

	if targetOrder < *currentOrder {
		return TransitionCheck{Revisiting: true}
	}

	skipped := make([]Stage, 0, targetOrder-*currentOrder-1)
	for _, s := range orderedStages {
		if s.Order() > *currentOrder && s.Order() < targetOrder {
			skipped = append(skipped, s)
		}
	}
	return TransitionCheck{SkippedStages: skipped}
}

// CurrentStage derives the display stage from the set of stages that have at
// least one event: the highest-ordered one. ok is false when no stage has
// events.
func CurrentStage(stagesWithEvents []Stage) (Stage, bool) {
	var current Stage
	best := 0
	for _, s := range stagesWithEvents {
		if o := s.Order(); o > best {
			best = o
			current = s
		}
	}
	return current, best > 0
}

// Freshness classifies how recently a stage was touched.
type Freshness string

const (
	FreshnessNone  Freshness = "none"
	FreshnessFresh Freshness = "fresh"
	FreshnessAging Freshness = "aging"
	FreshnessStale Freshness = "stale"
	FreshnessCold  Freshness = "cold"
)

// Freshness thresholds in days; upper bounds are exclusive.
const (
	freshWithinDays = 7
	agingWithinDays = 30
	staleWithinDays = 90
)

// Classify buckets the time since the last event: none (no events),
// fresh (<7 days), aging (<30), stale (<90), cold (≥90).
func Classify(lastEvent *time.Time, today time.Time) Freshness {
	if lastEvent == nil {
		return FreshnessNone
	}
	days := int(today.Sub(*lastEvent).Hours() / 24)
	switch {
	case days < freshWithinDays:
		return FreshnessFresh
	case days < agingWithinDays:
		return FreshnessAging
	case days < staleWithinDays:
		return FreshnessStale
	default:
		return FreshnessCold
	}
}

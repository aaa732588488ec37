package scraper

import "fmt"

// State is a step of the navigation flow.
type State int

const (
	StateIdle State = iota
	StateSearchSubmitted
	StateCaptchaPending
	StateCaptchaAccepted
	StateCaptchaRejected
	StateOutcomeClassified
	StateDetailDescent
	StatePaginating
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateIdle:              "idle",
	StateSearchSubmitted:   "search_submitted",
	StateCaptchaPending:    "captcha_pending",
	StateCaptchaAccepted:   "captcha_accepted",
	StateCaptchaRejected:   "captcha_rejected",
	StateOutcomeClassified: "outcome_classified",
	StateDetailDescent:     "detail_descent",
	StatePaginating:        "paginating",
	StateDone:              "done",
	StateFailed:            "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Event drives a transition.
type Event int

const (
	// EventStart: form loaded and search fields filled.
	EventStart Event = iota
	// EventChallenge: an answer was submitted for the current challenge.
	EventChallenge
	EventAccepted
	EventRejected
	// EventTimeout: the page response never arrived; the form is reloaded.
	EventTimeout
	EventRetry
	EventExhausted
	EventClassified
	EventDescend
	EventNextPage
	EventFinish
	// EventAbort: unrecoverable error, valid from any live state.
	EventAbort
)

var eventNames = map[Event]string{
	EventStart:      "start",
	EventChallenge:  "challenge",
	EventAccepted:   "accepted",
	EventRejected:   "rejected",
	EventTimeout:    "timeout",
	EventRetry:      "retry",
	EventExhausted:  "exhausted",
	EventClassified: "classified",
	EventDescend:    "descend",
	EventNextPage:   "next_page",
	EventFinish:     "finish",
	EventAbort:      "abort",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("event(%d)", int(e))
}

var transitions = map[State]map[Event]State{
	StateIdle: {
		EventStart: StateSearchSubmitted,
	},
	StateSearchSubmitted: {
		EventChallenge: StateCaptchaPending,
	},
	StateCaptchaPending: {
		EventAccepted:  StateCaptchaAccepted,
		EventRejected:  StateCaptchaRejected,
		EventTimeout:   StateIdle,
		EventExhausted: StateFailed,
	},
	StateCaptchaRejected: {
		EventRetry:     StateSearchSubmitted,
		EventExhausted: StateFailed,
	},
	StateCaptchaAccepted: {
		EventClassified: StateOutcomeClassified,
	},
	StateOutcomeClassified: {
		EventDescend:  StateDetailDescent,
		EventNextPage: StatePaginating,
		EventFinish:   StateDone,
	},
	StatePaginating: {
		EventChallenge: StateCaptchaPending,
	},
	StateDetailDescent: {
		EventFinish: StateDone,
	},
}

// transition returns the state reached from s on e.
func transition(s State, e Event) (State, error) {
	if e == EventAbort && !s.Terminal() {
		return StateFailed, nil
	}
	if next, ok := transitions[s][e]; ok {
		return next, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, e, s)
}

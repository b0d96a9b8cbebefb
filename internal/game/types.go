// Package game implements the Philosopher's Click session core: the answer
// state machine, the timers that drive it and the event loop that owns both.
package game

import "time"

const (
	DefaultGameName         = "Philosopher's Click"
	DefaultScoreInterval    = time.Second
	DefaultQuestionInterval = 10 * time.Minute
	DefaultResponseSeconds  = 60
)

// State is a point-in-time copy of a session's game state.
// Question is non-empty iff Awaiting is true.
type State struct {
	Score         int    `json:"score"`
	Question      string `json:"question,omitempty"`
	Awaiting      bool   `json:"awaiting"`
	Loading       bool   `json:"loading"`
	TimeRemaining int    `json:"timeRemaining"`
}

type Outcome string

const (
	OutcomeAnswered    Outcome = "answered"
	OutcomeEmptyAnswer Outcome = "empty_answer"
	OutcomeDismissed   Outcome = "dismissed"
	OutcomeTimeout     Outcome = "timeout"
)

// ResetsScore reports whether the outcome wipes the accumulated score.
func (o Outcome) ResetsScore() bool {
	return o != OutcomeAnswered
}

// Resolution describes how a pending question was retired.
type Resolution struct {
	Outcome     Outcome `json:"outcome"`
	Question    string  `json:"question"`
	Answer      string  `json:"answer,omitempty"`
	ScoreBefore int     `json:"scoreBefore"`
	ScoreAfter  int     `json:"scoreAfter"`
}

type EventType string

const (
	EventState    EventType = "state"
	EventThinking EventType = "thinking"
	EventQuestion EventType = "question"
	EventSkipped  EventType = "skipped"
	EventFailed   EventType = "failed"
	EventResolved EventType = "resolved"
	EventClosed   EventType = "closed"
)

type NoticeLevel string

const (
	NoticeInfo        NoticeLevel = "info"
	NoticeDestructive NoticeLevel = "destructive"
)

// Notice is the player-facing message attached to an event. Rendering it is
// up to the client.
type Notice struct {
	Title   string      `json:"title"`
	Message string      `json:"message,omitempty"`
	Level   NoticeLevel `json:"level"`
}

// Event is emitted by a Session after every state change.
type Event struct {
	Type       EventType   `json:"type"`
	State      State       `json:"state"`
	Notice     *Notice     `json:"notice,omitempty"`
	Resolution *Resolution `json:"resolution,omitempty"`
}

var (
	noticeThinking = Notice{Title: "The universe is pondering a thought...", Level: NoticeInfo}
	noticeSkipped  = Notice{
		Title:   "A passing thought",
		Message: "The generated question was not deep enough. The loop continues.",
		Level:   NoticeInfo,
	}
	noticeFailed = Notice{
		Title:   "The silence of the universe",
		Message: "No question could be generated. You are spared this time.",
		Level:   NoticeDestructive,
	}
	noticeRecorded = Notice{
		Title:   "Reflection recorded",
		Message: "Your perspective has been noted. The journey continues.",
		Level:   NoticeInfo,
	}
)

func resetNotice(o Outcome) Notice {
	n := Notice{Title: "A fresh start", Level: NoticeDestructive}
	switch o {
	case OutcomeEmptyAnswer:
		n.Message = "An empty answer echoes into the void. The game resets."
	case OutcomeDismissed:
		n.Message = "Skipping a question is skipping a part of yourself. The game resets."
	case OutcomeTimeout:
		n.Message = "Silence is also an answer. The universe resets."
	}
	return n
}

func noticeFor(o Outcome) Notice {
	if o == OutcomeAnswered {
		return noticeRecorded
	}
	return resetNotice(o)
}

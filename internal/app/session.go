package app

import (
	"sync"

	"quizdesk/internal/domain"
)

// NoAnswer is recorded for a question the user never answered before the
// countdown expired. It never matches a real option, so it always scores as
// incorrect.
const NoAnswer = ""

// EventType tags session events pushed to subscribers.
type EventType string

const (
	// EventQuestion carries a fresh snapshot after the current question or
	// its selection changed.
	EventQuestion EventType = "question"
	// EventTick carries the countdown display once per elapsed second.
	EventTick EventType = "tick"
	// EventFinished carries the final score; it is the last event a session emits.
	EventFinished EventType = "finished"
)

// Event is one session update for subscribers.
type Event struct {
	Type     EventType          `json:"type"`
	Question *Snapshot          `json:"question,omitempty"`
	Tick     *TimerDisplay      `json:"tick,omitempty"`
	Result   *domain.FinalScore `json:"result,omitempty"`
}

// Snapshot is the render-ready view of the current question. The presentation
// layer only draws snapshots; it never mutates session state directly.
type Snapshot struct {
	Category  string       `json:"category"`
	Index     int          `json:"index"`
	Total     int          `json:"total"`
	Prompt    string       `json:"prompt"`
	Options   []string     `json:"options"`
	Selected  string       `json:"selected"`
	Answered  bool         `json:"answered"`
	Countdown TimerDisplay `json:"countdown"`
}

// Session owns one user's run through a fetched question set: question list,
// current index, per-question selections and the single active countdown.
// It moves from active to finished exactly once (explicit finish, advancing
// past the last question, or countdown expiry on the last question) and
// rejects mutations afterwards.
type Session struct {
	mu          sync.Mutex
	owner       string
	category    string
	questions   []domain.Question
	current     int
	answers     map[int]string
	finished    bool
	seconds     int
	countdown   *Countdown
	onFinish    func(domain.FinalScore)
	subscribers map[chan Event]struct{}
}

// newSession starts the countdown for question zero as a side effect.
// questions must be non-empty; callers surface fetch failures before a
// session ever exists.
func newSession(owner, category string, questions []domain.Question, seconds int, schedule Schedule, onFinish func(domain.FinalScore)) *Session {
	s := &Session{
		owner:       owner,
		category:    category,
		questions:   questions,
		answers:     make(map[int]string),
		seconds:     seconds,
		countdown:   newCountdown(schedule),
		onFinish:    onFinish,
		subscribers: make(map[chan Event]struct{}),
	}
	s.mu.Lock()
	s.armLocked()
	s.mu.Unlock()
	return s
}

// Owner returns the username the session belongs to.
func (s *Session) Owner() string { return s.owner }

// Category returns the quiz category being played.
func (s *Session) Category() string { return s.category }

// Snapshot returns the current question view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SelectAnswer records the option for the current question, overwriting any
// prior selection. It does not advance.
func (s *Session) SelectAnswer(option string) error {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return domain.ErrSessionFinished
	}
	if !containsOption(s.questions[s.current].Options, option) {
		s.mu.Unlock()
		return domain.ErrInvalidOption
	}
	s.answers[s.current] = option
	s.broadcastLocked(s.questionEventLocked())
	s.mu.Unlock()
	return nil
}

// Next advances to the next question, restarting the countdown at full
// duration. From the last question it finishes the session instead. Leaving a
// question unanswered records nothing; the index can still be answered by
// navigating back before finishing.
func (s *Session) Next() error {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return domain.ErrSessionFinished
	}
	s.countdown.Cancel()
	if s.current == len(s.questions)-1 {
		s.finishUnlock()
		return nil
	}
	s.current++
	s.armLocked()
	s.broadcastLocked(s.questionEventLocked())
	s.mu.Unlock()
	return nil
}

// Prev moves back one question, restarting the countdown at full duration.
// No-op at index zero.
func (s *Session) Prev() error {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return domain.ErrSessionFinished
	}
	if s.current == 0 {
		s.mu.Unlock()
		return nil
	}
	s.countdown.Cancel()
	s.current--
	s.armLocked()
	s.broadcastLocked(s.questionEventLocked())
	s.mu.Unlock()
	return nil
}

// Finish scores the session: one point per question whose recorded answer
// equals its correct option, unanswered questions counting as incorrect.
// Terminal; cancels the countdown.
func (s *Session) Finish() (domain.FinalScore, error) {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return domain.FinalScore{}, domain.ErrSessionFinished
	}
	score := s.scoreLocked()
	s.finishUnlock()
	return score, nil
}

// Abandon cancels the countdown and closes the session without scoring or
// persistence. Used when the client disconnects mid-quiz or starts a new one.
func (s *Session) Abandon() {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.countdown.Cancel()
	s.finished = true
	s.mu.Unlock()
}

// Subscribe returns a channel of session events, starting with the current
// question snapshot. The caller must invoke cancel to avoid leaks.
func (s *Session) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.questionEventLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// armLocked restarts the countdown for the question that just became current.
// The expiry closure carries the index it was armed for, so a fire that lost
// the race against user navigation is discarded in expire.
func (s *Session) armLocked() {
	idx := s.current
	s.countdown.Arm(s.seconds, s.publishTick, func() { s.expire(idx) })
}

func (s *Session) publishTick(remaining int) {
	s.mu.Lock()
	if !s.finished {
		display := DisplayFor(remaining, s.seconds)
		s.broadcastLocked(Event{Type: EventTick, Tick: &display})
	}
	s.mu.Unlock()
}

// expire handles countdown expiry: the expiring question gets the NoAnswer
// sentinel if nothing was selected, then the session advances exactly as Next
// would, finishing from the last question.
func (s *Session) expire(idx int) {
	s.mu.Lock()
	if s.finished || s.current != idx {
		s.mu.Unlock()
		return
	}
	if _, ok := s.answers[idx]; !ok {
		s.answers[idx] = NoAnswer
	}
	if idx == len(s.questions)-1 {
		s.finishUnlock()
		return
	}
	s.current++
	s.armLocked()
	s.broadcastLocked(s.questionEventLocked())
	s.mu.Unlock()
}

// finishUnlock finalizes the session and releases the lock before running the
// finish callback, which may block on persistence.
func (s *Session) finishUnlock() {
	s.countdown.Cancel()
	s.finished = true
	score := s.scoreLocked()
	s.broadcastLocked(Event{Type: EventFinished, Result: &score})
	cb := s.onFinish
	s.mu.Unlock()
	if cb != nil {
		cb(score)
	}
}

func (s *Session) scoreLocked() domain.FinalScore {
	score := 0
	for i, q := range s.questions {
		if s.answers[i] == q.Correct {
			score++
		}
	}
	return domain.FinalScore{Score: score, Total: len(s.questions)}
}

func (s *Session) snapshotLocked() Snapshot {
	q := s.questions[s.current]
	selected, answered := s.answers[s.current]
	return Snapshot{
		Category:  s.category,
		Index:     s.current,
		Total:     len(s.questions),
		Prompt:    q.Prompt,
		Options:   q.Options,
		Selected:  selected,
		Answered:  answered,
		Countdown: DisplayFor(s.countdown.Remaining(), s.seconds),
	}
}

func (s *Session) questionEventLocked() Event {
	snap := s.snapshotLocked()
	return Event{Type: EventQuestion, Question: &snap}
}

func (s *Session) broadcastLocked(ev Event) {
	for ch := range s.subscribers {
		select {
		case ch <- ev:
		default:
			// Drop the oldest update so a slow client never blocks the timer.
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func containsOption(options []string, option string) bool {
	for _, o := range options {
		if o == option {
			return true
		}
	}
	return false
}

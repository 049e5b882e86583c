package domain

// TimeLayout is the timestamp format for persisted score records, local time.
const TimeLayout = "2006-01-02 15:04:05"

// Question is a single multiple-choice question as served to a session.
// Options arrive already shuffled; Correct is always one of Options.
type Question struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	Correct string   `json:"-"`
}

// FinalScore is the outcome of a finished quiz session.
type FinalScore struct {
	Score int `json:"score"`
	Total int `json:"total"`
}

// ScoreRecord is one persisted quiz result. Records are append-only.
type ScoreRecord struct {
	Username  string `json:"username"`
	Category  string `json:"category"`
	Score     int    `json:"score"`
	Timestamp string `json:"timestamp"`
}

// UserAccount is a registered user. The password is an opaque string;
// comparison goes through a CredentialVerifier so a hashing strategy can be
// swapped in without changing the store contract.
type UserAccount struct {
	ID       int64  `json:"-"`
	Username string `json:"username"`
	Password string `json:"-"`
}

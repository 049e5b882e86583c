// Package trivia fetches multiple-choice questions from an Open Trivia
// DB-compatible provider.
package trivia

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
)

// DefaultBaseURL is the public Open Trivia DB endpoint.
const DefaultBaseURL = "https://opentdb.com/api.php"

// DefaultTimeout bounds one fetch round trip.
const DefaultTimeout = 5 * time.Second

// Client implements app.QuestionSource over HTTP. Transport errors,
// non-success provider codes and malformed payloads all surface as errors;
// they never reach the session core, which only sees a fetched question list
// or a reported failure.
type Client struct {
	httpClient *http.Client
	baseURL    string

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

var _ app.QuestionSource = (*Client)(nil)

type apiResponse struct {
	ResponseCode int         `json:"response_code"`
	Results      []apiResult `json:"results"`
}

type apiResult struct {
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// Fetch issues one GET for amount questions in the given provider category.
// Question and answer text arrives HTML-entity escaped and is decoded here;
// each question's options are the incorrect answers plus the correct one,
// randomly permuted.
func (c *Client) Fetch(ctx context.Context, categoryID, amount int) ([]domain.Question, error) {
	query := url.Values{}
	query.Set("amount", strconv.Itoa(amount))
	query.Set("category", strconv.Itoa(categoryID))
	query.Set("type", "multiple")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build trivia request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trivia request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trivia request: unexpected status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode trivia response: %w", err)
	}
	if payload.ResponseCode != 0 || len(payload.Results) == 0 {
		return nil, domain.ErrNoQuestions
	}

	questions := make([]domain.Question, 0, len(payload.Results))
	for _, item := range payload.Results {
		correct := html.UnescapeString(item.CorrectAnswer)
		options := make([]string, 0, len(item.IncorrectAnswers)+1)
		for _, wrong := range item.IncorrectAnswers {
			options = append(options, html.UnescapeString(wrong))
		}
		options = append(options, correct)
		c.shuffle(options)
		questions = append(questions, domain.Question{
			Prompt:  html.UnescapeString(item.Question),
			Options: options,
			Correct: correct,
		})
	}
	return questions, nil
}

func (c *Client) shuffle(options []string) {
	c.mu.Lock()
	c.rnd.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	c.mu.Unlock()
}

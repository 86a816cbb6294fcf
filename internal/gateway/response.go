package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/MrSnakeDoc/storysync/internal/domain"
)

// storyEnvelope covers the two create shapes the server has been seen to
// use: {"story": {...}} and {"data": {"story": {...}}}.
type storyEnvelope struct {
	Error   bool          `json:"error"`
	Message string        `json:"message"`
	Story   *domain.Story `json:"story"`
	Data    *struct {
		Story *domain.Story `json:"story"`
	} `json:"data"`
}

type listResponse struct {
	Error     bool           `json:"error"`
	Message   string         `json:"message"`
	ListStory []domain.Story `json:"listStory"`
}

type loginResponse struct {
	Error       bool         `json:"error"`
	Message     string       `json:"message"`
	LoginResult *LoginResult `json:"loginResult"`
}

// decodeCreateResponse normalizes a 2xx create answer. The story is nil
// when the server acknowledged without echoing it.
func decodeCreateResponse(body []byte) (*CreateResult, error) {
	if len(body) == 0 {
		return &CreateResult{}, nil
	}

	var env storyEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &NetworkError{Op: "create story", Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	if env.Error {
		return nil, &APIError{StatusCode: http.StatusOK, Message: env.Message}
	}

	res := &CreateResult{Message: env.Message, Story: env.Story}
	if res.Story == nil && env.Data != nil {
		res.Story = env.Data.Story
	}
	return res, nil
}

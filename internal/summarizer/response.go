package summarizer

import (
	"fmt"
	"strings"
)

type chatCompletionResponse struct {
	Choices []choice `json:"choices"`
}

type choice struct {
	Message      chatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type chatResponseMessage struct {
	Content string `json:"content"`
}

func (r *chatCompletionResponse) text() (string, error) {
	if r == nil || len(r.Choices) == 0 {
		return "", fmt.Errorf("empty response choices")
	}
	return strings.TrimSpace(r.Choices[0].Message.Content), nil
}

package summarizer

import (
	"encoding/base64"
)

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentBlock struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

func buildChatRequest(model string, maxTokens int, image []byte) *chatCompletionRequest {
	return &chatCompletionRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: 0.2,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: []contentBlock{
				{Type: "text", Text: instructionPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL(image), Detail: "high"}},
			}},
		},
	}
}

func dataURL(image []byte) string {
	return "data:" + DetectMIME(image) + ";base64," + base64.StdEncoding.EncodeToString(image)
}

// Package kakao holds the KakaoTalk i OpenBuilder skill payloads: the inbound
// skill request, the immediate response, and the callback body.
package kakao

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/JakeFAU/notice-summarizer/internal/extract"
)

const (
	// Version is the skill response schema version.
	Version = "2.0"
	// MaxSimpleTextRunes is the platform limit for simpleText.text.
	MaxSimpleTextRunes = 1000

	imageParam = "secureimage"
)

// SkillRequest is the subset of the skill payload the webhook reads.
type SkillRequest struct {
	UserRequest UserRequest `json:"userRequest"`
	Action      Action      `json:"action"`
}

// UserRequest carries request metadata, including the one-shot callback URL.
type UserRequest struct {
	CallbackURL string `json:"callbackUrl"`
	Utterance   string `json:"utterance"`
	User        User   `json:"user"`
}

// User identifies the chat user.
type User struct {
	ID string `json:"id"`
}

// Action holds skill parameters. Both maps stay raw so their field order
// survives for URL extraction.
type Action struct {
	Name         string          `json:"name"`
	Params       json.RawMessage `json:"params"`
	DetailParams json.RawMessage `json:"detailParams"`
}

// ParseSkillRequest decodes a skill payload.
func ParseSkillRequest(body []byte) (SkillRequest, error) {
	var req SkillRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return SkillRequest{}, fmt.Errorf("decode skill request: %w", err)
	}
	return req, nil
}

// CallbackURL returns the trimmed callback address, or "".
func (r SkillRequest) CallbackURL() string {
	return strings.TrimSpace(r.UserRequest.CallbackURL)
}

// ImageURL finds the photo URL. Candidates in order: the secureimage detail
// param, the secureimage plain param, then every detail param.
func (r SkillRequest) ImageURL() string {
	detail := extract.Parse(r.Action.DetailParams)
	params := extract.Parse(r.Action.Params)

	candidates := []extract.Value{
		field(detail, imageParam),
		field(params, imageParam),
		detail,
	}
	for _, c := range candidates {
		if url := extract.FirstURL(c); url != "" {
			return url
		}
	}
	return ""
}

func field(v extract.Value, key string) extract.Value {
	obj, ok := v.(extract.Object)
	if !ok {
		return nil
	}
	return obj.Get(key)
}

// Response is the skill response and callback body.
type Response struct {
	Version     string    `json:"version"`
	UseCallback bool      `json:"useCallback,omitempty"`
	Template    *Template `json:"template,omitempty"`
}

// Template wraps the response outputs.
type Template struct {
	Outputs []Output `json:"outputs"`
}

// Output is one rendered component.
type Output struct {
	SimpleText *SimpleTextBody `json:"simpleText,omitempty"`
}

// SimpleTextBody is a plain-text bubble.
type SimpleTextBody struct {
	Text string `json:"text"`
}

// SimpleText builds a single-bubble response, truncating text to the
// platform limit.
func SimpleText(text string) Response {
	return Response{
		Version: Version,
		Template: &Template{
			Outputs: []Output{{SimpleText: &SimpleTextBody{Text: Truncate(text, MaxSimpleTextRunes)}}},
		},
	}
}

// CallbackAck tells the platform a callback will follow.
func CallbackAck() Response {
	return Response{Version: Version, UseCallback: true}
}

// Truncate cuts s to at most limit runes, ending with an ellipsis when cut.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit-1]) + "…"
}

// Marshal encodes v without HTML escaping and without a trailing newline.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode kakao payload: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

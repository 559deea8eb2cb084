// Package main hosts the notice summarizer service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes the skill webhook, health probes and /metrics. The skill handler
//     answers every request with HTTP 200 and a platform envelope, either an immediate text reply or a
//     callback acknowledgement.
//   - Dispatcher: each accepted request becomes one background task. Shutdown waits for in-flight tasks
//     and then cancels whatever is left.
//   - Job runner: fetches the photo with the Colly fetcher, asks the rate gate for admission, calls the
//     vision model and posts exactly one callback message, all under a single deadline.
//   - Rate gate: one upstream call at a time, a minimum spacing between calls, and a same-day cooldown
//     after a long throttle reported by the upstream.
//
// Quick checklist:
//   - Set NOTICE_UPSTREAM_API_KEY (or OPENAI_API_KEY). Without it the skill replies with a configuration
//     message instead of accepting work.
//   - Run locally: go run ./cmd/noticebot serve --config config.yaml (or rely solely on env overrides).
package main

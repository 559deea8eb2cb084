// Package api hosts the HTTP server for the skill webhook. Notable routes:
//   - POST <skill path> (default /kakao-skill) for KakaoTalk skill requests.
//   - GET/HEAD / for platform liveness checks.
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
package api

// Package notice defines the job, outcome, and port types shared by the
// webhook, the job runner, and the outbound adapters.
package notice

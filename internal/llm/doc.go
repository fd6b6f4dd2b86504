// Package llm invokes text-generation providers on behalf of the roleplay
// and tutoring services. Providers perform a single request; Engine adds
// the per-attempt timeout, rate-limit waits and retry policy on top.
package llm

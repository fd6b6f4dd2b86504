// Package roleplay contains the conversation orchestrator that drives a
// learner through a scenario. It owns the per-session state machine, asks the
// inference client for partner replies in generative mode, interprets the
// model output and decides when a stage is finished. Every step on a session
// is serialized; different sessions proceed in parallel.
package roleplay

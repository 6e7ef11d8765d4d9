// Package model defines the provider-agnostic boundary between the assistant
// and an external language model service.
//
// A Model receives a Request (instructions, conversation contents, tool
// definitions) and emits one or more Responses over a channel. Responses may
// carry text parts, function call parts, or both. Collect drains a generation
// into its final response for callers that do not stream.
//
// Providers (OpenAI, Anthropic) live in sub packages and implement Model so
// the orchestrator stays decoupled from vendor SDKs. MockModel is a scripted
// in-memory Model used by tests and by the offline "mock" provider.
package model

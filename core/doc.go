// Package core provides the small set of shared conversational types used by
// AgroNix. It defines:
//
//   - Content and its closed set of Parts (text, function call, function response)
//   - FunctionCall / FunctionResponse records exchanged with a model
//   - ModelLimiter bounding the number of model round trips in one turn
//   - NewID for correlation identifiers
//
// Components (crop telemetry, calendar store, tool dispatch, assistant) depend on
// these types instead of on a vendor SDK, so model providers stay swappable.
package core

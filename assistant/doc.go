// Package assistant implements the conversation orchestrator.
//
// A Turn reads the user's crop snapshot, evaluates it against the agronomic
// thresholds, runs the daily task generator and then drives the model: text
// parts are appended to the answer and tool calls are dispatched against the
// calendar in the order the model emitted them. All results of one response
// go back to the model together in a single follow-up request.
//
// Model failures never escape a turn. They are classified into a Failure and
// surfaced as a fixed user-facing answer:
//
//	res, err := a.Turn(ctx, "user-1", "What should I do today?")
//	if err != nil {
//		// empty message or missing user
//	}
//	if res.Failure != nil {
//		log.Println(res.Failure.Kind)
//	}
//	fmt.Println(res.Answer)
package assistant

package models

// Structured error messages callers are expected to branch on.
const (
	MsgSessionNotFound  = "Session not found"
	MsgAlreadyRecording = "Already recording"
	MsgNotRecording     = "Not recording"
)

// Result is the payload returned by every tool. Fields reported by the
// engine are carried through unchanged.
type Result map[string]interface{}

// ErrorResult builds a structured failure payload
func ErrorResult(msg string) Result {
	return Result{"error": msg}
}

// Err returns the structured error message, if any
func (r Result) Err() string {
	msg, _ := r["error"].(string)
	return msg
}

// Success reports the success flag, false when absent
func (r Result) Success() bool {
	ok, _ := r["success"].(bool)
	return ok
}

package web

// UserMessage is an operator-facing explanation of an error code.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Code as reported in logs and traces
}

var userMessages = map[string]UserMessage{
	"open": {
		Message: "A sensor file could not be opened",
		Action:  "Check DATA_DIR and the configured file paths",
	},
	"decode": {
		Message: "A sensor row could not be parsed and was skipped",
		Action:  "Fix the row reported in the log; the replay continues meanwhile",
	},
	"boundary": {
		Message: "A sensor file has no data rows, so the replay cannot rewind",
		Action:  "Add data rows to both files",
	},
	"seek": {
		Message: "Rewinding a sensor file failed",
		Action:  "The files are reopened on the next tick; check the storage if this repeats",
	},
	"unusable": {
		Message: "The reader was left in an unknown position",
		Action:  "The files are reopened on the next tick",
	},
	"closed": {
		Message: "The reader was used after it was closed",
		Action:  "The files are reopened on the next tick",
	},
	"cancel": {
		Message: "A read was interrupted by shutdown",
		Action:  "No action needed",
	},
	"publish": {
		Message: "A record could not be delivered to the broker",
		Action:  "Check MQTT_BROKER_HOST and that the broker is reachable",
	},
}

// MapErrorCode returns the operator message for code. Unknown codes get a
// generic message; an empty code returns the zero value.
func MapErrorCode(code string) UserMessage {
	if code == "" {
		return UserMessage{}
	}
	msg, ok := userMessages[code]
	if !ok {
		msg = UserMessage{
			Message: "An unexpected error occurred",
			Action:  "See the agent log for details",
		}
	}
	msg.Code = code
	return msg
}

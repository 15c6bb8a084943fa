package assistant

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"
)

// BookAction is the single structured action the model may emit.
type BookAction struct {
	Action      string `json:"action"`
	ServiceName string `json:"serviceName"`
	Date        string `json:"date"`
	Time        string `json:"time"`
}

var (
	actionBlockPattern = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
	actionTimePattern  = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// ExtractAction scans a model reply for a fenced json action block. It
// returns the reply with the block removed and, when the block is a valid
// book action, the parsed action.
//
// Parsing fails closed: malformed JSON, an unknown action name or a missing
// or malformed field all yield a nil action, never an error. The surrounding
// prose is still shown to the customer.
func ExtractAction(reply string) (string, *BookAction) {
	match := actionBlockPattern.FindStringSubmatchIndex(reply)
	if match == nil {
		return strings.TrimSpace(reply), nil
	}

	cleaned := strings.TrimSpace(reply[:match[0]] + reply[match[1]:])
	raw := reply[match[2]:match[3]]

	var action BookAction
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&action); err != nil {
		return cleaned, nil
	}
	if action.Action != "book" {
		return cleaned, nil
	}
	if action.ServiceName == "" {
		return cleaned, nil
	}
	if _, err := time.Parse("2006-01-02", action.Date); err != nil {
		return cleaned, nil
	}
	if !actionTimePattern.MatchString(action.Time) {
		return cleaned, nil
	}
	return cleaned, &action
}

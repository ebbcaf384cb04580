package integrations

import (
	"fmt"

	"projectdesk/internal/domain/models"
)

// SlackEvent triggers a Slack connection transition.
type SlackEvent string

const (
	SlackConfigure SlackEvent = "configure"
	SlackAuthorize SlackEvent = "authorize"
	SlackComplete  SlackEvent = "complete"
	SlackFail      SlackEvent = "fail"
)

// slackTransitions defines all valid state transitions.
// Key: current state → event → new state.
var slackTransitions = map[models.SlackState]map[SlackEvent]models.SlackState{
	models.SlackUnconfigured: {
		SlackConfigure: models.SlackConfigured,
	},
	models.SlackConfigured: {
		SlackConfigure: models.SlackConfigured,
		SlackAuthorize: models.SlackAwaitingCallback,
		SlackFail:      models.SlackFailed,
	},
	models.SlackAwaitingCallback: {
		SlackConfigure: models.SlackConfigured,
		SlackAuthorize: models.SlackAwaitingCallback,
		SlackComplete:  models.SlackConnected,
		SlackFail:      models.SlackFailed,
	},
	models.SlackConnected: {
		SlackConfigure: models.SlackConfigured,
		SlackAuthorize: models.SlackAwaitingCallback,
	},
	models.SlackFailed: {
		SlackConfigure: models.SlackConfigured,
		SlackAuthorize: models.SlackAwaitingCallback,
	},
}

// ApplySlackTransition returns the state reached from current on event.
func ApplySlackTransition(current models.SlackState, event SlackEvent) (models.SlackState, error) {
	events, ok := slackTransitions[current]
	if !ok {
		return "", fmt.Errorf("no transitions defined for slack state %q", current)
	}
	next, ok := events[event]
	if !ok {
		return "", fmt.Errorf("invalid slack transition: %q + %q", current, event)
	}
	return next, nil
}

// CanApply reports whether event is valid from current.
func CanApply(current models.SlackState, event SlackEvent) bool {
	_, err := ApplySlackTransition(current, event)
	return err == nil
}

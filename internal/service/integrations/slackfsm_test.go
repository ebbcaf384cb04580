package integrations

import (
	"testing"

	"projectdesk/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplySlackTransition(t *testing.T) {
	tests := []struct {
		from  models.SlackState
		event SlackEvent
		to    models.SlackState
	}{
		{models.SlackUnconfigured, SlackConfigure, models.SlackConfigured},
		{models.SlackConfigured, SlackAuthorize, models.SlackAwaitingCallback},
		{models.SlackConfigured, SlackFail, models.SlackFailed},
		{models.SlackAwaitingCallback, SlackComplete, models.SlackConnected},
		{models.SlackAwaitingCallback, SlackFail, models.SlackFailed},
		{models.SlackFailed, SlackAuthorize, models.SlackAwaitingCallback},
		{models.SlackConnected, SlackConfigure, models.SlackConfigured},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"+"+string(tt.event), func(t *testing.T) {
			got, err := ApplySlackTransition(tt.from, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.to, got)
		})
	}
}

func TestApplySlackTransition_Invalid(t *testing.T) {
	invalid := []struct {
		from  models.SlackState
		event SlackEvent
	}{
		{models.SlackUnconfigured, SlackAuthorize},
		{models.SlackUnconfigured, SlackComplete},
		{models.SlackUnconfigured, SlackFail},
		{models.SlackConfigured, SlackComplete},
		{models.SlackConnected, SlackFail},
		{models.SlackFailed, SlackComplete},
		{models.SlackState("bogus"), SlackConfigure},
	}

	for _, tt := range invalid {
		_, err := ApplySlackTransition(tt.from, tt.event)
		assert.Error(t, err, "%s + %s", tt.from, tt.event)
	}
}

func TestFailedOnlyReachableFromConfiguredOrAwaiting(t *testing.T) {
	for from, events := range slackTransitions {
		if events[SlackFail] == "" {
			continue
		}
		assert.Contains(t,
			[]models.SlackState{models.SlackConfigured, models.SlackAwaitingCallback},
			from)
	}
}

package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/cs-ops-service/internal/domain"
)

func TestExternalStatusMapping(t *testing.T) {
	assert.Equal(t, ExternalStatusResolved, ExternalStatus(domain.ActionStatusCompleted))
	assert.Equal(t, ExternalStatusIgnored, ExternalStatus(domain.ActionStatusSkipped))
	assert.Equal(t, ExternalStatusPending, ExternalStatus(domain.ActionStatusPending))
}

func TestLocalStatusMapping(t *testing.T) {
	status, ok := LocalStatus(ExternalStatusResolved)
	assert.True(t, ok)
	assert.Equal(t, domain.ActionStatusCompleted, status)

	status, ok = LocalStatus(ExternalStatusIgnored)
	assert.True(t, ok)
	assert.Equal(t, domain.ActionStatusSkipped, status)

	status, ok = LocalStatus(ExternalStatusPending)
	assert.True(t, ok)
	assert.Equal(t, domain.ActionStatusPending, status)
}

func TestLocalStatusUnrecognized(t *testing.T) {
	_, ok := LocalStatus("em_triagem")
	assert.False(t, ok)
	_, ok = LocalStatus("")
	assert.False(t, ok)
}

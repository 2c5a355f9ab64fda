package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAlertStatus_IsTerminal(t *testing.T) {
	assert.False(t, AlertStatusPending.IsTerminal())
	assert.False(t, AlertStatusInFlight.IsTerminal())
	assert.True(t, AlertStatusDelivered.IsTerminal())
	assert.True(t, AlertStatusFailedPermanent.IsTerminal())
}

func TestAlertTask_Eligible(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	later := now.Add(time.Minute)

	assert.True(t, AlertTask{Status: AlertStatusPending}.Eligible(now))
	assert.True(t, AlertTask{Status: AlertStatusPending, NextRetryAt: &now}.Eligible(now))
	assert.False(t, AlertTask{Status: AlertStatusPending, NextRetryAt: &later}.Eligible(now))
	assert.False(t, AlertTask{Status: AlertStatusFailedPermanent}.Eligible(now))
}

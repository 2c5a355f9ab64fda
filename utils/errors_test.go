package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"safewatch/models"
)

func TestServiceError_Classification(t *testing.T) {
	cause := errors.New("connection refused")

	delivery := NewDeliveryError("push failed", cause)
	assert.True(t, IsDeliveryError(delivery))
	assert.False(t, IsPermanentFailure(delivery))
	assert.ErrorIs(t, delivery, cause)

	wrapped := fmt.Errorf("drain: %w", NewPermanentFailure("task-1", 5, cause))
	assert.True(t, IsPermanentFailure(wrapped))

	precondition := NewPreconditionError(models.PreconditionNoContacts)
	assert.True(t, IsPreconditionError(precondition))
	assert.Equal(t, models.PreconditionNoContacts, PreconditionReason(precondition))

	serviceErr, ok := GetServiceError(NewNotFoundError("Alert task"))
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, serviceErr.StatusCode)

	assert.False(t, IsServiceError(cause))
}

func TestUserMessage_DistinctPerCategory(t *testing.T) {
	messages := map[string]string{
		"location":  UserMessage(NewPreconditionError(models.PreconditionLocationRequired)),
		"contacts":  UserMessage(NewPreconditionError(models.PreconditionNoContacts)),
		"delivery":  UserMessage(NewDeliveryError("offline", nil)),
		"permanent": UserMessage(NewPermanentFailure("t", 5, nil)),
	}

	seen := map[string]bool{}
	for kind, msg := range messages {
		assert.NotEmpty(t, msg, kind)
		assert.False(t, seen[msg], "duplicate message for %s", kind)
		seen[msg] = true
	}

	assert.Contains(t, messages["delivery"], "Pending sync")
	assert.Empty(t, UserMessage(nil))
}

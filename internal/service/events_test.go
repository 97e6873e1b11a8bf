package service

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/taekwondodev/go-BaaS-Client/internal/logger"
	"github.com/taekwondodev/go-BaaS-Client/internal/models"
)

func TestEvents_SubscribeAndUnsubscribe(t *testing.T) {
	events := NewEvents()
	var first, second []models.AuthEvent

	unsubscribeFirst := events.Subscribe(func(e models.AuthEvent, _ *models.Session) { first = append(first, e) })
	events.Subscribe(func(e models.AuthEvent, _ *models.Session) { second = append(second, e) })

	events.Emit(models.EventSignedIn, &models.Session{})
	unsubscribeFirst()
	unsubscribeFirst()
	events.Emit(models.EventSignedOut, nil)

	assert.Equal(t, []models.AuthEvent{models.EventSignedIn}, first)
	assert.Equal(t, []models.AuthEvent{models.EventSignedIn, models.EventSignedOut}, second)
}

func TestEvents_RegistrationOrder(t *testing.T) {
	events := NewEvents()
	var order []int
	for i := 0; i < 3; i++ {
		events.Subscribe(func(models.AuthEvent, *models.Session) { order = append(order, i) })
	}

	events.Emit(models.EventTokenRefreshed, nil)

	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestLogAuthEvents(t *testing.T) {
	var buf bytes.Buffer
	log := logger.New(logger.Options{Level: "debug", Format: "json", Output: &buf})
	userID := uuid.New()

	LogAuthEvents(log)(models.EventSignedIn, &models.Session{
		AccessToken: "secret",
		User:        &models.User{ID: userID, Email: "user@example.com", Role: "authenticated"},
	})

	out := buf.String()
	assert.Contains(t, out, "SIGNED_IN")
	assert.Contains(t, out, userID.String())
	assert.NotContains(t, out, "secret")
}

package websocket

import (
	"sync"
	"testing"

	"safewatch/models"

	"github.com/stretchr/testify/assert"
)

func TestClient_SendAfterCloseIsDropped(t *testing.T) {
	client := newClient(nil, nil, "u1")

	assert.True(t, client.SendMessage(models.WSMessage{Type: models.WSTypePong}))

	client.close()
	client.close()

	assert.False(t, client.SendMessage(models.WSMessage{Type: models.WSTypePong}))

	// The message queued before close is still readable, then the channel ends.
	msg, ok := <-client.send
	assert.True(t, ok)
	assert.Equal(t, models.WSTypePong, msg.Type)
	_, ok = <-client.send
	assert.False(t, ok)
}

func TestClient_SendRacingClose(t *testing.T) {
	client := newClient(nil, nil, "u1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				client.SendMessage(models.WSMessage{Type: models.WSTypePong})
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		client.close()
	}()

	assert.NotPanics(t, wg.Wait)
	assert.False(t, client.SendMessage(models.WSMessage{Type: models.WSTypePong}))
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChannel_SoldStatus(t *testing.T) {
	assert.Equal(t, TicketStatusSoldOnline, ChannelOnline.SoldStatus())
	assert.Equal(t, TicketStatusSoldOffline, ChannelOffline.SoldStatus())
}

func TestChannel_IsValid(t *testing.T) {
	assert.True(t, ChannelOnline.IsValid())
	assert.True(t, ChannelOffline.IsValid())
	assert.False(t, Channel("phone").IsValid())
	assert.False(t, Channel("").IsValid())
}

func TestIdentity_Key(t *testing.T) {
	assert.Equal(t, "user:u1", Identity{UserID: "u1", SessionID: "s1"}.Key())
	assert.Equal(t, "session:s1", Identity{SessionID: "s1"}.Key())
	assert.Equal(t, "anonymous", Identity{}.Key())
	assert.True(t, Identity{}.IsAnonymous())
	assert.False(t, Identity{SessionID: "s1"}.IsAuthenticated())
}

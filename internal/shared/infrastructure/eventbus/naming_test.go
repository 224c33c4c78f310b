package eventbus

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelName(t *testing.T) {
	assert.Equal(t, "snapyr.events.inAppMessage", channelName("snapyr.events", "inAppMessage"))
	assert.Equal(t, "snapyr.events.inAppMessage", channelName("snapyr.events.", "inAppMessage"))

	p := NewRedisPublisherFromClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "", nil)
	assert.Equal(t, "snapyr.events.inAppMessage", p.Channel("inAppMessage"))
	assert.NoError(t, p.Close())
}

func TestBindingKey(t *testing.T) {
	assert.Equal(t, "#", bindingKey(WildcardName))
	assert.Equal(t, "inAppMessage", bindingKey("inAppMessage"))
}

func TestRedisSubscriber_Patterns(t *testing.T) {
	noop := func(ctx context.Context, event *HostEvent) error { return nil }

	t.Run("defaults to everything", func(t *testing.T) {
		s, err := NewRedisSubscriber("redis://localhost:6379/0", "", nil)
		require.NoError(t, err)
		defer s.Close()
		assert.Equal(t, []string{"snapyr.events.*"}, s.patterns())
	})

	t.Run("named listeners", func(t *testing.T) {
		s, err := NewRedisSubscriber("redis://localhost:6379/0", "bridge", nil)
		require.NoError(t, err)
		defer s.Close()
		s.RegisterListener(ListenerFunc(noop, "inAppMessage"))
		assert.Equal(t, []string{"bridge.inAppMessage"}, s.patterns())
	})

	t.Run("wildcard listener wins", func(t *testing.T) {
		s, err := NewRedisSubscriber("redis://localhost:6379/0", "", nil)
		require.NoError(t, err)
		defer s.Close()
		s.RegisterListener(ListenerFunc(noop, "inAppMessage"))
		s.RegisterListener(ListenerFunc(noop))
		assert.Equal(t, []string{"snapyr.events.*"}, s.patterns())
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := NewRedisSubscriber("://nope", "", nil)
		assert.Error(t, err)
	})
}

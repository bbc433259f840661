package publisher

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

// This test requires a running Redis instance
// If Redis is not available, the test will be skipped
func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	pub := NewRedisPublisher("localhost:6379", 0, "test_listings", 1, 100)
	defer pub.Close()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	// streamCount 1 pins every publish to the :0 stream
	stream := "test_listings:0"
	err := client.XGroupCreateMkStream(ctx, stream, "test_group", "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		t.Fatal(err)
	}

	messages := make(chan string, 1)

	go func() {
		result, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Streams:  []string{stream, ">"},
			Group:    "test_group",
			Consumer: "test_consumer",
			Block:    0,
		}).Result()
		assert.NoError(t, err)
		messages <- result[0].Messages[0].Values["swift"].(string)
	}()

	time.Sleep(100 * time.Millisecond)

	err = pub.Publish(ctx, "swift", []byte("test_listing"))
	assert.NoError(t, err)

	select {
	case msg := <-messages:
		// The message should be base64 encoded
		assert.Equal(t, "dGVzdF9saXN0aW5n", msg) // base64 of "test_listing"
	case <-time.After(1 * time.Second):
		t.Error("Timed out waiting for message")
	}
}

func TestRedisPublisherTrimStreams(t *testing.T) {
	ctx := context.Background()
	pub := NewRedisPublisher("localhost:6379", 0, "test_trim", 1, 5)
	defer pub.Close()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()

	if _, err := client.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	stream := "test_trim:0"
	client.Del(ctx, stream)

	for i := 0; i < 20; i++ {
		err := pub.Publish(ctx, "swift", []byte("entry"))
		assert.NoError(t, err)
	}

	err := pub.TrimStreams(ctx)
	assert.NoError(t, err)

	length, err := client.XLen(ctx, stream).Result()
	assert.NoError(t, err)
	assert.LessOrEqual(t, length, int64(5), "Stream should be trimmed to the configured maximum")

	client.Del(ctx, stream)
}

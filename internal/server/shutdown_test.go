package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"skillswap/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type channelSink struct {
	delivered chan uint
}

func (s *channelSink) Name() string { return "channel" }

func (s *channelSink) Deliver(_ context.Context, userID uint, _ notifications.Event) error {
	s.delivered <- userID
	return nil
}

func TestShutdown_DeliversEventsPublishedWhileDraining(t *testing.T) {
	env := newTestEnv(t, false)
	sink := &channelSink{delivered: make(chan uint, 1)}
	dispatcher := notifications.NewDispatcher(8, sink)
	dispatcher.Start(env.srv.shutdownCtx)
	env.srv.dispatcher = dispatcher
	env.srv.app = env.app

	entered := make(chan struct{})
	release := make(chan struct{})
	env.app.Get("/slow-complete", func(c *fiber.Ctx) error {
		close(entered)
		<-release
		dispatcher.Publish(7, notifications.NewEvent("A swap has been marked as completed", notifications.TypeSwapCompleted, nil))
		return c.SendStatus(fiber.StatusOK)
	})
	addr := listen(t, env)

	reqDone := make(chan error, 1)
	go func() {
		resp, err := http.Get("http://" + addr + "/slow-complete")
		if err == nil {
			_ = resp.Body.Close()
		}
		reqDone <- err
	}()
	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the handler")
	}

	shutdownDone := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownDone <- env.srv.Shutdown(ctx)
	}()
	// Give Shutdown time to start waiting on the in-flight request.
	time.Sleep(100 * time.Millisecond)
	close(release)

	require.NoError(t, <-reqDone)
	require.NoError(t, <-shutdownDone)

	select {
	case userID := <-sink.delivered:
		assert.Equal(t, uint(7), userID)
	default:
		t.Fatal("event published during the HTTP drain was never delivered")
	}
}

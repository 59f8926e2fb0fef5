package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aureuma/styleengine/internal/redis"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

var errStreamingUnsupported = errors.New("httpapi: response writer does not support flushing")

// streamSSE subscribes to channel on the progress Redis database and
// relays every published message to w as a server-sent event until the
// client disconnects. One dedicated connection is held per request, since
// rueidis requires a Dedicate()d client for pub/sub.
func streamSSE(w http.ResponseWriter, r *http.Request, manager *redis.Manager, channel string, logger *zap.Logger) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errStreamingUnsupported)
		return
	}

	client, err := manager.GetClient(redis.ProgressDBIndex)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	dedicated, cancel := client.Dedicate()
	defer cancel()

	ctx := r.Context()

	subscribeCmd := dedicated.B().Subscribe().Channel(channel).Build()

	err = dedicated.Receive(ctx, subscribeCmd, func(msg rueidis.PubSubMessage) {
		fmt.Fprintf(w, "data: %s\n\n", msg.Message)
		flusher.Flush()
	})
	if err != nil && !errors.Is(err, rueidis.ErrClosing) && ctx.Err() == nil {
		logger.Warn("sse subscription ended", zap.String("channel", channel), zap.Error(err))
	}
}

// pubSubRelay buffers pub/sub messages onto a channel so a caller can
// select between them and some other completion signal, rather than being
// stuck inside rueidis's blocking Receive callback.
type pubSubRelay struct {
	messages chan []byte
}

func newPubSubRelay() *pubSubRelay {
	return &pubSubRelay{messages: make(chan []byte, 16)}
}

func (p *pubSubRelay) onMessage(msg rueidis.PubSubMessage) {
	select {
	case p.messages <- []byte(msg.Message):
	default:
		// Slow consumer: drop rather than block the subscription.
	}
}

func (p *pubSubRelay) close() {
	close(p.messages)
}

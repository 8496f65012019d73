package logstream

import (
	"context"
	"log/slog"

	"github.com/valkey-io/valkey-go"
)

// ChannelPrefix prefixes the pub/sub channel carrying a job's log lines
const ChannelPrefix = "webconsole:logs:"

// ValkeyLogWriter publishes log output to a Valkey pub/sub channel so
// other console instances can stream it
type ValkeyLogWriter struct {
	client  valkey.Client
	channel string
	ctx     context.Context
}

// NewValkeyLogWriter creates a new Valkey log publisher
func NewValkeyLogWriter(ctx context.Context, client valkey.Client, jobID string) *ValkeyLogWriter {
	return &ValkeyLogWriter{
		client:  client,
		channel: ChannelPrefix + jobID,
		ctx:     ctx,
	}
}

// Write implements io.Writer. Publish errors are logged and swallowed so
// a Valkey outage never fails the job.
func (w *ValkeyLogWriter) Write(p []byte) (n int, err error) {
	if err := w.Publish(string(p)); err != nil {
		slog.Warn("Failed to publish log to Valkey", "channel", w.channel, "error", err)
	}
	return len(p), nil
}

// Publish sends a message to the log channel
func (w *ValkeyLogWriter) Publish(message string) error {
	cmd := w.client.B().Publish().Channel(w.channel).Message(message).Build()
	return w.client.Do(w.ctx, cmd).Error()
}

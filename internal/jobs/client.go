package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Client enqueues engine tasks.
type Client struct {
	client *asynq.Client
}

func NewClient(redisOpt asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpt)}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueRecordingFetch schedules a recording fetch for the booking.
// A zero delay runs it immediately.
func (c *Client) EnqueueRecordingFetch(ctx context.Context, bookingID uuid.UUID, trigger string, delay time.Duration) error {
	payload, err := json.Marshal(RecordingFetchPayload{BookingID: bookingID, Trigger: trigger})
	if err != nil {
		return err
	}

	opts := []asynq.Option{asynq.MaxRetry(3)}
	if delay > 0 {
		opts = append(opts, asynq.ProcessIn(delay))
	}

	_, err = c.client.EnqueueContext(ctx, asynq.NewTask(TypeRecordingFetch, payload), opts...)
	return err
}

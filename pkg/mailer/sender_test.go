package mailer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	got []any
}

func (c *capturePublisher) PublishJSON(_ context.Context, body any) error {
	c.got = append(c.got, body)
	return nil
}

func TestQueueSender_PublishesJob(t *testing.T) {
	pub := &capturePublisher{}
	s := QueueSender{Pub: pub}

	err := s.Send(context.Background(), "Hello", []string{"a@example.com", "b@example.com"}, "text", "<p>html</p>")
	require.NoError(t, err)
	require.Len(t, pub.got, 1)

	job, ok := pub.got[0].(EmailJob)
	require.True(t, ok)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, job.To)
	assert.Equal(t, "Hello", job.Subject)
	assert.Equal(t, "text", job.Text)
	assert.Equal(t, "<p>html</p>", job.HTML)
}

func TestQueueSender_RequiresRecipients(t *testing.T) {
	pub := &capturePublisher{}
	err := QueueSender{Pub: pub}.Send(context.Background(), "x", nil, "t", "")
	assert.Error(t, err)
	assert.Empty(t, pub.got)
}

package notify

import (
	"context"
	"errors"
	"testing"

	"auth_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	msg models.EmailMessage
	err error
}

func (f *fakePublisher) SendMessage(_ context.Context, msg models.EmailMessage) error {
	if f.err != nil {
		return f.err
	}
	f.msg = msg
	return nil
}

func TestSendResetEmail(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	n := New(pub, "https://app.example.com")

	err := n.SendResetEmail(context.Background(), "a@x.com", "Alice", "tok123")
	require.NoError(t, err)

	assert.Equal(t, "a@x.com", pub.msg.Email)
	assert.Equal(t, "Reset your password", pub.msg.Subject)
	assert.Contains(t, pub.msg.HTML, "https://app.example.com/reset-pwd?token=tok123")
	assert.Contains(t, pub.msg.HTML, "Alice")
}

func TestSendResetEmail_EscapesName(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	n := New(pub, "https://app.example.com")

	err := n.SendResetEmail(context.Background(), "a@x.com", "<script>", "tok")
	require.NoError(t, err)

	assert.NotContains(t, pub.msg.HTML, "<script>")
}

func TestSendResetEmail_PublishError(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{err: errors.New("broker down")}
	n := New(pub, "https://app.example.com")

	err := n.SendResetEmail(context.Background(), "a@x.com", "Alice", "tok")
	assert.Error(t, err)
}

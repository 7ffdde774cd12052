package jobs

import (
	"context"
	"errors"
	"mystery_hunt_backend/internal/service"
	"sync"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	mails []service.Mail
	err   error
}

func (n *recordingNotifier) Send(ctx context.Context, mail service.Mail) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mails = append(n.mails, mail)
	return n.err
}

type staticFetcher struct{}

func (staticFetcher) Fetch(ctx context.Context, ref string) ([]byte, string, error) {
	return []byte("img:" + ref), "image/png", nil
}

func TestHandleSendMailDeliversWithImage(t *testing.T) {
	n := &recordingNotifier{}
	h := HandleSendMail(&service.MailDeliverer{Notifier: n, Images: staticFetcher{}})

	task, err := NewSendMailTask(service.MailJob{
		Kind:     service.MailKindHint,
		To:       "p@example.com",
		Subject:  "Hint",
		Body:     "look under the bridge",
		ImageRef: "mails/bridge.png",
	})
	require.NoError(t, err)

	require.NoError(t, h.ProcessTask(context.Background(), task))
	require.Len(t, n.mails, 1)
	assert.Equal(t, "p@example.com", n.mails[0].To)
	assert.Equal(t, "image/png", n.mails[0].MimeType)
	assert.Equal(t, []byte("img:mails/bridge.png"), n.mails[0].Image)
}

func TestHandleSendMailBadPayloadSkipsRetry(t *testing.T) {
	h := HandleSendMail(&service.MailDeliverer{Notifier: &recordingNotifier{}})
	err := h.ProcessTask(context.Background(), asynq.NewTask(TypeSendMail, []byte("{")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}

func TestHandleSendMailPropagatesSendError(t *testing.T) {
	n := &recordingNotifier{err: errors.New("smtp down")}
	h := HandleSendMail(&service.MailDeliverer{Notifier: n})
	task, err := NewSendMailTask(service.MailJob{Kind: service.MailKindReview, To: "p@example.com"})
	require.NoError(t, err)
	assert.Error(t, h.ProcessTask(context.Background(), task))
}

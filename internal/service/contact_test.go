package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/cropguard/internal/domain"
)

type fakeContactStore struct {
	err   error
	saved []domain.ContactMessage
}

func (s *fakeContactStore) Create(_ context.Context, msg *domain.ContactMessage) error {
	if s.err != nil {
		return s.err
	}
	msg.ID = int64(len(s.saved) + 1)
	s.saved = append(s.saved, *msg)
	return nil
}

type recordingNotifier struct {
	title, body string
	err         error
}

func (n *recordingNotifier) Notify(_ context.Context, title, body string) error {
	n.title, n.body = title, body
	return n.err
}

func testContactConfig() ContactConfig {
	return ContactConfig{DefaultSubject: "CropGuard AI Contact Form Submission", WhatsApp: "+917845844982"}
}

func TestContactSubmitDefaultsSubject(t *testing.T) {
	store := &fakeContactStore{}
	n := &recordingNotifier{}
	svc := NewContactService(store, n, nil, testContactConfig())

	res, err := svc.Submit(context.Background(), &ContactRequest{Name: "Mei", Email: "mei@example.com", Message: "Hi"})
	require.NoError(t, err)

	require.Len(t, store.saved, 1)
	assert.Equal(t, "CropGuard AI Contact Form Submission", store.saved[0].Subject)
	assert.Equal(t, "CropGuard AI Contact: CropGuard AI Contact Form Submission", n.title)
	assert.Equal(t, "New contact: Mei (mei@example.com): Hi", n.body)
	assert.Equal(t, "Contact form submitted successfully!", res.Message)
	assert.Contains(t, res.WhatsAppNotification, "phone=917845844982")
}

func TestContactNotificationFailureIsBestEffort(t *testing.T) {
	store := &fakeContactStore{}
	svc := NewContactService(store, &recordingNotifier{err: errors.New("smtp down")}, nil, testContactConfig())

	res, err := svc.Submit(context.Background(), &ContactRequest{Name: "a", Email: "b", Subject: "Bug", Message: "c"})
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Equal(t, "Bug", store.saved[0].Subject)
}

func TestContactStoreFailure(t *testing.T) {
	n := &recordingNotifier{}
	svc := NewContactService(&fakeContactStore{err: errors.New("locked")}, n, nil, testContactConfig())

	_, err := svc.Submit(context.Background(), &ContactRequest{Name: "a", Email: "b", Message: "c"})
	assert.Error(t, err)
	assert.Empty(t, n.title, "no notification for an unsaved message")
}

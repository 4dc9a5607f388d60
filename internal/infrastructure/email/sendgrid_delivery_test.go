package email_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	domain "github.com/avatarctic/voter-email/go/internal/core/domain/email"
	infraemail "github.com/avatarctic/voter-email/go/internal/infrastructure/email"
	tmocks "github.com/avatarctic/voter-email/go/test/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func scheduledFixture(t *testing.T, outbound *tmocks.OutboundRepositoryMock, status domain.SendStatus) *domain.Scheduled {
	t.Helper()
	s := &domain.Scheduled{
		ID:             uuid.New(),
		SenderEmail:    "info@wevote.us",
		SenderName:     "We Vote",
		RecipientEmail: "ada@example.com",
		Subject:        "Please verify your email",
		MessageText:    "text body",
		MessageHTML:    "<p>html body</p>",
		SendStatus:     status,
	}
	require.NoError(t, outbound.CreateScheduled(context.Background(), s))
	return s
}

func TestSendGridDelivery_Sent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v3/mail/send", r.URL.Path)
		require.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			From struct {
				Email string `json:"email"`
			} `json:"from"`
			Subject string `json:"subject"`
		}
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, "info@wevote.us", payload.From.Email)
		require.Equal(t, "Please verify your email", payload.Subject)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	outbound := &tmocks.OutboundRepositoryMock{}
	s := scheduledFixture(t, outbound, domain.SendStatusToBeProcessed)
	d := infraemail.NewSendGridDelivery(&infraemail.DeliveryConfig{APIKey: "sg-key", Host: srv.URL}, outbound, nil)

	sent, err := d.SendScheduledEmail(context.Background(), s)
	require.NoError(t, err)
	require.True(t, sent)
	require.Equal(t, domain.SendStatusSent, outbound.Scheduled[0].SendStatus)
	require.NotNil(t, outbound.Scheduled[0].SentAt)
}

func TestSendGridDelivery_FailureMarksRow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	outbound := &tmocks.OutboundRepositoryMock{}
	s := scheduledFixture(t, outbound, domain.SendStatusToBeProcessed)
	d := infraemail.NewSendGridDelivery(&infraemail.DeliveryConfig{Host: srv.URL}, outbound, nil)

	sent, err := d.SendScheduledEmail(context.Background(), s)
	require.Error(t, err)
	require.False(t, sent)
	require.Equal(t, domain.SendStatusFailed, outbound.Scheduled[0].SendStatus)
	require.Nil(t, outbound.Scheduled[0].SentAt)
}

func TestSendGridDelivery_SkipsHeldAndSent(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	outbound := &tmocks.OutboundRepositoryMock{}
	d := infraemail.NewSendGridDelivery(&infraemail.DeliveryConfig{Host: srv.URL}, outbound, nil)

	for _, status := range []domain.SendStatus{domain.SendStatusWaitingForVerification, domain.SendStatusSent} {
		s := scheduledFixture(t, outbound, status)
		sent, err := d.SendScheduledEmail(context.Background(), s)
		require.NoError(t, err)
		require.False(t, sent)
	}
	require.Zero(t, atomic.LoadInt32(&hits))
}

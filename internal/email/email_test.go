package email

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/saif-ali01/projectXAPI/internal/config"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg *Message) error {
	return m.Called(ctx, msg).Error(0)
}

func testMessage() *Message {
	return &Message{
		To:         []string{"owner@example.com"},
		Subject:    "Reset your password",
		Body:       "line one\nline two",
		TemplateID: "password_reset",
	}
}

func TestBuildRawMessage(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	raw := string(BuildRawMessage("noreply@example.com", testMessage(), now))

	assert.True(t, strings.HasPrefix(raw, "From: noreply@example.com\r\n"))
	assert.Contains(t, raw, "To: owner@example.com\r\n")
	assert.Contains(t, raw, "Subject: Reset your password\r\n")
	assert.Contains(t, raw, "\r\n\r\nline one\r\nline two")
}

func TestCompositeSender_CallsAllAndJoinsErrors(t *testing.T) {
	ctx := context.Background()
	msg := testMessage()

	first := new(mockSender)
	second := new(mockSender)
	first.On("Send", ctx, msg).Return(errors.New("smtp down"))
	second.On("Send", ctx, msg).Return(nil)

	err := NewCompositeEmailSender(first, nil, second).Send(ctx, msg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	first.AssertExpectations(t)
	second.AssertExpectations(t)
}

func TestCompositeSender_Empty(t *testing.T) {
	assert.Error(t, NewCompositeEmailSender().Send(context.Background(), testMessage()))
}

func TestFileSender_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mail", "out.log")
	s, err := NewFileEmailSender(path, "noreply@example.com")
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), testMessage()))
	require.NoError(t, s.Send(context.Background(), testMessage()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "template: password_reset"))
}

func TestFileSender_EmptyPath(t *testing.T) {
	_, err := NewFileEmailSender("  ", "noreply@example.com")
	assert.Error(t, err)
}

func TestNewSMTPSender_FallsBackToLogging(t *testing.T) {
	s := NewSMTPSender(&config.Config{SmtpFromAddress: "noreply@example.com"}, zap.NewNop())
	_, ok := s.(*LoggingSender)
	assert.True(t, ok)
	assert.NoError(t, s.Send(context.Background(), testMessage()))
}

func TestMockEmailKey(t *testing.T) {
	assert.Equal(t, "mockemail:owner@example.com:password_reset", MockEmailKey("Owner@Example.com", "password_reset"))
}

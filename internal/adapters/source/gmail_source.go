package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/mikey/placement-triage/internal/core"
	"github.com/mikey/placement-triage/internal/resilience"
	"github.com/mikey/placement-triage/internal/telemetry"
)

// DefaultQuery selects unread mail outside the trash
const DefaultQuery = "is:unread -in:trash"

var metadataHeaders = []string{"From", "To", "Subject"}

// GmailSource lists unread messages through the Gmail API
type GmailSource struct {
	svc    *gmail.Service
	query  string
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewGmailSource builds the Gmail service from a credentials file
func NewGmailSource(ctx context.Context, credentialsFile, query string, breaker resilience.BreakerSettings, metrics *telemetry.Metrics, logger *zap.Logger) (*GmailSource, error) {
	svc, err := gmail.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gmail.GmailReadonlyScope))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return NewGmailSourceFromService(svc, query, breaker, metrics, logger), nil
}

// NewGmailSourceFromService wraps an existing Gmail service
func NewGmailSourceFromService(svc *gmail.Service, query string, breaker resilience.BreakerSettings, metrics *telemetry.Metrics, logger *zap.Logger) *GmailSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if query == "" {
		query = DefaultQuery
	}
	return &GmailSource{
		svc:    svc,
		query:  query,
		cb:     resilience.NewCircuitBreaker(breaker, metrics, logger),
		logger: logger,
	}
}

// FetchUnread lists up to max unread messages and loads their headers.
// Messages whose metadata cannot be loaded are skipped.
func (s *GmailSource) FetchUnread(ctx context.Context, max int) ([]*core.Message, error) {
	req := s.svc.Users.Messages.List("me").Q(s.query)
	if max > 0 {
		req = req.MaxResults(int64(max))
	}

	out, err := s.cb.Execute(func() (interface{}, error) {
		return req.Context(ctx).Do()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	list := out.(*gmail.ListMessagesResponse)

	msgs := make([]*core.Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := s.fetchMetadata(ctx, ref.Id)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			s.logger.Warn("Skipping message with unreadable metadata",
				zap.String("id", ref.Id),
				zap.Error(err))
			continue
		}
		msgs = append(msgs, msg)
	}

	s.logger.Debug("Fetched unread messages",
		zap.Int("listed", len(list.Messages)),
		zap.Int("loaded", len(msgs)))

	return msgs, nil
}

func (s *GmailSource) fetchMetadata(ctx context.Context, id string) (*core.Message, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		return s.svc.Users.Messages.Get("me", id).
			Format("metadata").
			MetadataHeaders(metadataHeaders...).
			Context(ctx).
			Do()
	})
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("message %s no longer exists", id)
		}
		return nil, err
	}
	m := out.(*gmail.Message)

	msg := &core.Message{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Snippet:  m.Snippet,
	}
	if m.Payload != nil {
		for _, h := range m.Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "from":
				msg.From = h.Value
			case "to":
				msg.To = h.Value
			case "subject":
				msg.Subject = h.Value
			}
		}
	}
	return msg, nil
}

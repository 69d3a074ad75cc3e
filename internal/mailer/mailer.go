package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pindropapp/pindrop-backend/pkg/config"
	pkgerrors "github.com/pindropapp/pindrop-backend/pkg/errors"
	"github.com/pindropapp/pindrop-backend/pkg/logger"
)

const responseBodyReadLimit int64 = 1024

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// New picks a sender for the current configuration: the HTTP API sender when
// credentials are present, otherwise a log-only sender for local development.
func New(cfg config.MailConfig, logg *logger.Logger) Sender {
	if strings.TrimSpace(cfg.APIKey) != "" && strings.TrimSpace(cfg.APIBaseURL) != "" {
		return NewAPISender(cfg)
	}
	return &logSender{logg: logg}
}

// APISender posts messages to a transactional mail HTTP API.
type APISender struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	from       string
}

// Option configures optional sender behavior.
type Option func(*APISender)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *APISender) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewAPISender builds the HTTP mail sender from config.
func NewAPISender(cfg config.MailConfig, opts ...Option) *APISender {
	sender := &APISender{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		from:       cfg.DefaultFrom,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(sender)
		}
	}
	return sender
}

type message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Send posts one message to the mail API.
func (s *APISender) Send(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient is required")
	}

	payload, err := json.Marshal(message{
		From:    s.from,
		To:      to,
		Subject: subject,
		Text:    body,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal mail payload")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build mail request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute mail request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return pkgerrors.Wrap(pkgerrors.CodeDependency,
			fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "mail request failed")
	}
	return nil
}

// logSender writes outbound mail to the log instead of delivering it.
type logSender struct {
	logg *logger.Logger
}

func (s *logSender) Send(ctx context.Context, to, subject, body string) error {
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{"to": to, "subject": subject})
		s.logg.Info(ctx, "mail delivery skipped (no mail API configured)")
	}
	return nil
}

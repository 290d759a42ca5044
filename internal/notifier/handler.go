// Package notifier turns mirrored notifications into emails. It consumes
// the Kafka notification stream and forwards client-facing events to the
// email service; business and courier dashboards get theirs live over the
// bus, so only CLIENT notifications leave the process.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vrtelolleva/platform/internal/domain"
)

type Handler struct {
	emailServiceURL string
	httpClient      *http.Client
	logger          *slog.Logger
}

func NewHandler(emailServiceURL string, client *http.Client, logger *slog.Logger) *Handler {
	return &Handler{
		emailServiceURL: emailServiceURL,
		httpClient:      client,
		logger:          logger,
	}
}

type emailRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	OrderID string `json:"order_id,omitempty"`
}

// Handle forwards one notification. Non-client roles and notifications
// without an order are acknowledged without an email so the consumer can
// commit the offset.
func (h *Handler) Handle(ctx context.Context, n domain.Notification) error {
	if n.Role != domain.RoleClient {
		return nil
	}
	if n.Order == nil {
		h.logger.Debug("skipping notification without order context", "notification_id", n.ID)
		return nil
	}

	req := emailRequest{
		To:      n.Order.ClientID + "@vrtelolleva.app",
		Subject: n.Title,
		Body:    n.Message,
		OrderID: n.OrderID,
	}

	if err := h.sendEmail(ctx, req); err != nil {
		h.logger.Error("failed to send email", "error", err, "order_id", n.OrderID)
		return fmt.Errorf("send email: %w", err)
	}

	h.logger.Info("notification emailed", "order_id", n.OrderID, "title", n.Title)
	return nil
}

func (h *Handler) sendEmail(ctx context.Context, body emailRequest) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.emailServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("email service returned status %d", resp.StatusCode)
	}

	return nil
}

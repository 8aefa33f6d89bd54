package crm

import (
	"FirstContact/entity"
	"FirstContact/internal/config"
	"FirstContact/internal/lib/sl"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrNotConfigured = errors.New("crm webhook url not configured")

// Service posts finalized leads to the CRM webhook (Albato -> AmoCRM).
type Service struct {
	webhookURL string
	pipelineID int64
	client     *http.Client
	log        *slog.Logger
}

func NewCrmService(conf *config.Config, logger *slog.Logger) *Service {
	timeout := conf.Crm.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		webhookURL: conf.Crm.WebhookURL,
		pipelineID: conf.Crm.PipelineID,
		client:     &http.Client{Timeout: timeout},
		log:        logger.With(sl.Module("crm service")),
	}
}

// Check reports ErrNotConfigured when no webhook is set.
func (s *Service) Check() error {
	if s.webhookURL == "" {
		return ErrNotConfigured
	}
	return nil
}

// BuildRequest maps a lead to the webhook body.
func (s *Service) BuildRequest(lead entity.LeadPayload) entity.CrmLead {
	name := lead.Name
	if name == "" {
		name = entity.DefaultClientName
	}
	intent := lead.Intent()
	hot := entity.TagRegular
	if lead.IsHot() {
		hot = entity.TagHotLead
	}

	source := lead.Channel
	if lead.Channel == "" || lead.Channel == "telegram" {
		source = fmt.Sprintf("Telegram (%s)", lead.UserID)
	}

	summary := lead.Summarize
	if summary == "" {
		summary = lead.Quest
	}

	return entity.CrmLead{
		PipelineID: s.pipelineID,
		Name:       fmt.Sprintf("Запрос от %s", name),
		Contact: entity.CrmContact{
			Name:  name,
			Phone: lead.Phone,
		},
		Query: strings.TrimSpace(lead.Quest),
		Tags: []string{
			entity.TagFirstContact,
			strings.ReplaceAll(intent, "_", " "),
			hot,
		},
		CustomFields: entity.CrmCustomField{
			Source:    source,
			AiSummary: summary,
			Intent:    intent,
			LeadID:    uuid.NewString(),
		},
	}
}

// SubmitLead delivers a lead once. Without a configured webhook it only warns.
func (s *Service) SubmitLead(ctx context.Context, lead entity.LeadPayload) error {
	log := s.log.With(slog.String("user_id", lead.UserID))

	if err := s.Check(); err != nil {
		log.Warn("lead not sent", sl.Err(err))
		return nil
	}

	body := s.BuildRequest(lead)
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal lead: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post lead: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("crm webhook status %d: %s", resp.StatusCode, strings.TrimSpace(string(text)))
	}

	log.With(
		slog.Int("status", resp.StatusCode),
		slog.String("lead_id", body.CustomFields.LeadID),
		slog.Any("tags", body.Tags),
	).Info("lead sent to crm")

	return nil
}

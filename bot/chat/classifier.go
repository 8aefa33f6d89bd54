package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"FirstContact/entity"
	"FirstContact/internal/lib/sl"
)

const fallbackSummaryRunes = 100

const classifyPrompt = `Вы — эксперт по лидам в NeuroPragmat.
Контекст компании:
{context}

Сообщение клиента:
"{input}"

Извлеките структурированную информацию. Ответьте только JSON-объектом без пояснений:
{"intent": "одно из: узнать_цену, заказать_услугу, задать_вопрос, связаться_с_менеджером", "name": "имя клиента или пустая строка", "contact": "телефон/email или пустая строка", "summary": "резюме запроса", "is_hot": true или false}`

// Classifier asks the model for a structured reading of a lead request.
type Classifier struct {
	generator Generator
	log       *slog.Logger
}

func NewClassifier(generator Generator, log *slog.Logger) *Classifier {
	return &Classifier{
		generator: generator,
		log:       log.With(sl.Module("chat.classifier")),
	}
}

// Classify never fails: when the model is unavailable or its answer cannot
// be decoded the request is treated as a plain question.
func (c *Classifier) Classify(ctx context.Context, message, knowledge string) entity.LeadInfo {
	raw, err := c.generator.Generate(ctx, classifyPrompt, map[string]string{
		"input":   message,
		"context": knowledge,
	})
	if err == nil {
		var info entity.LeadInfo
		if info, err = decodeLeadInfo(raw); err == nil {
			return info
		}
	}
	c.log.Warn("lead classification fallback", sl.Err(err))
	return entity.LeadInfo{
		Intent:  entity.IntentQuestion,
		Summary: truncateRunes(message, fallbackSummaryRunes),
	}
}

func decodeLeadInfo(raw string) (entity.LeadInfo, error) {
	var info entity.LeadInfo
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return info, fmt.Errorf("no json object in %q", truncateRunes(raw, 80))
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &info); err != nil {
		return info, fmt.Errorf("decode lead info: %w", err)
	}
	if !entity.ValidIntent(info.Intent) {
		return info, fmt.Errorf("unknown intent %q", info.Intent)
	}
	info.Name = strings.TrimSpace(info.Name)
	info.Contact = strings.TrimSpace(info.Contact)
	info.Summary = strings.TrimSpace(info.Summary)
	return info, nil
}

// ApplyClassification attaches info to the lead. Name and phone gathered
// during the dialog take precedence over what the model extracted.
func ApplyClassification(lead entity.LeadPayload, info entity.LeadInfo) entity.LeadPayload {
	if (lead.Name == "" || lead.Name == entity.DefaultClientName) && info.Name != "" {
		lead.Name = info.Name
	}
	if lead.Phone == "" {
		if phone := ExtractPhone(info.Contact); phone != "" {
			lead.Phone = CanonicalPhone(phone)
		}
	}
	if info.Summary != "" {
		lead.Summarize = info.Summary
	}
	lead.Info = &info
	return lead
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

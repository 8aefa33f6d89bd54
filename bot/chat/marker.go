package chat

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"FirstContact/entity"
)

const markerTag = "【systemTextByAi"

var markerEscaper = strings.NewReplacer("%", `\u0025`, "【", `\u3010`, "】", `\u3011`)

var markerPattern = regexp.MustCompile(`(?s)【systemTextByAi:\s*(\{.*?\})】`)

// BuildMarker renders the completion marker carrying the lead. Values are
// JSON strings wrapped in %% delimiters. '%' and the marker brackets inside
// values are written as JSON escapes so a value can never close the marker.
func BuildMarker(lead entity.LeadPayload) string {
	fields := []struct {
		key   string
		value string
	}{
		{"name", lead.Name},
		{"phone", lead.Phone},
		{"summarize", lead.Summarize},
		{"quest", lead.Quest},
		{"business_type", lead.BusinessType},
		{"goal", lead.Goal},
		{"crm", lead.Crm},
	}

	var sb strings.Builder
	sb.WriteString(markerTag)
	sb.WriteString(`: {"trigger": "`)
	sb.WriteString(entity.TriggerNewLead)
	sb.WriteString(`"`)
	for _, f := range fields {
		sb.WriteString(`, "`)
		sb.WriteString(f.key)
		sb.WriteString(`": %%`)
		sb.WriteString(quoteMarkerValue(f.value))
		sb.WriteString(`%%`)
	}
	sb.WriteString("}】")
	return sb.String()
}

func quoteMarkerValue(value string) string {
	b, _ := json.Marshal(value)
	return markerEscaper.Replace(string(b))
}

// HasMarker reports whether text carries a completion marker tag, well-formed or not.
func HasMarker(text string) bool {
	return strings.Contains(text, markerTag)
}

// StripMarker removes completion markers and trailing whitespace from text.
func StripMarker(text string) string {
	return strings.TrimSpace(markerPattern.ReplaceAllString(text, ""))
}

// FindMarker locates a completion marker anywhere in text and decodes it.
func FindMarker(text string) (entity.LeadPayload, error) {
	var lead entity.LeadPayload
	if !HasMarker(text) {
		return lead, ErrMarkerNotFound
	}
	m := markerPattern.FindStringSubmatch(text)
	if m == nil {
		return lead, fmt.Errorf("%w: tag without body", ErrMarkerMalformed)
	}

	body := strings.ReplaceAll(m[1], `%%"`, `"`)
	body = strings.ReplaceAll(body, `"%%`, `"`)
	body = strings.ReplaceAll(body, `%%`, `"`)

	if err := json.Unmarshal([]byte(body), &lead); err != nil {
		return entity.LeadPayload{}, fmt.Errorf("%w: %v", ErrMarkerMalformed, err)
	}
	return lead, nil
}

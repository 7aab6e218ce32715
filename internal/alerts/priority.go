package alerts

import (
	"strings"

	"github.com/rescuedev/rescue-api/internal/models"
)

// severityKeys are the payload fields checked for an explicit
// severity hint.
var severityKeys = []string{"severidad", "severity", "prioridad", "priority"}

var severityWords = map[string]models.Priority{
	"critica":  models.PriorityCritical,
	"crítica":  models.PriorityCritical,
	"critical": models.PriorityCritical,
	"alta":     models.PriorityHigh,
	"high":     models.PriorityHigh,
	"media":    models.PriorityMedium,
	"medium":   models.PriorityMedium,
	"baja":     models.PriorityLow,
	"low":      models.PriorityLow,
}

// ComputePriority derives an alert's priority. An explicit severity
// keyword in the payload overrides the base priority implied by the
// type code; the default is medium.
func ComputePriority(code string, payload map[string]interface{}) models.Priority {
	for _, key := range severityKeys {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		word, ok := raw.(string)
		if !ok {
			continue
		}
		if priority, ok := severityWords[strings.ToLower(strings.TrimSpace(word))]; ok {
			return priority
		}
	}

	switch strings.ToUpper(strings.TrimSpace(code)) {
	case string(models.CodeRed):
		return models.PriorityCritical
	case string(models.CodeOrange):
		return models.PriorityHigh
	case string(models.CodeYellow), string(models.CodeBlue):
		return models.PriorityMedium
	case string(models.CodeGreen):
		return models.PriorityLow
	default:
		return models.PriorityMedium
	}
}

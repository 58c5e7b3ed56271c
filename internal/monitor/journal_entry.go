package monitor

import (
	"time"

	"github.com/kaelsworks/sentinel/internal/diagnosis"
	"github.com/kaelsworks/sentinel/internal/executor"
	"github.com/kaelsworks/sentinel/internal/journal"
)

func journalEntry(container, faultType string, decision diagnosis.Decision, result executor.Result) journal.Entry {
	return journal.Entry{
		Timestamp: time.Now(),
		Container: container,
		FaultType: faultType,
		Command:   string(decision.Command),
		Success:   result.Success,
		Reason:    result.Reason,
		Extra: map[string]any{
			"decision_reason": decision.Reason,
			"decision_source": decision.Source,
			"total_attempts":  result.TotalAttempts,
			"is_recovered":    result.IsRecovered,
		},
	}
}

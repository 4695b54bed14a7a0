package notify

import (
	"sort"

	"github.com/trezcool/fyp/core"
)

// Auditor writes one log line per event.
type Auditor struct {
	logger core.Logger
}

var _ core.Subscriber = (*Auditor)(nil)

func NewAuditor(logger core.Logger) *Auditor {
	return &Auditor{logger: logger}
}

func (a *Auditor) Handle(evt core.Event) {
	fields := map[string]interface{}{
		"kind":      evt.Kind,
		"entity":    evt.Entity,
		"entity_id": evt.EntityID,
		"old_state": evt.OldState,
		"new_state": evt.NewState,
		"at":        evt.At,
	}
	if evt.ProjectID != "" {
		fields["project_id"] = evt.ProjectID
	}
	for k, v := range evt.Data {
		fields["data."+k] = v
	}
	a.logger.Info("audit: "+evt.String(), fields, evt.Actor)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

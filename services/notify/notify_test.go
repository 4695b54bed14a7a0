package notify_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/services/email"
	"github.com/trezcool/fyp/services/notify"
	"github.com/trezcool/fyp/tests"
)

func TestNotifier_Handle(t *testing.T) {
	conf := testutil.NewConfig()
	logger := new(testutil.Logger)
	core.ParseEmailTemplates(logger)
	emailsvc.ResetSentMessages()

	n := notify.NewNotifier(
		emailsvc.NewConsoleServiceMock(conf, logger),
		notify.NewStaticDirectory(conf.Mail.NotifyTo),
		logger,
	)
	at := time.Date(2024, 5, 2, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name        string
		evt         core.Event
		wantSubject string
		wantText    []string
	}{
		{
			name:     "draft marks are not notified",
			evt:      core.Event{Kind: core.EventMarksSubmitted, EntityID: "m1", At: at},
			wantText: nil,
		},
		{
			name: "approval",
			evt: core.Event{
				Kind:      core.EventSubmissionApproved,
				Entity:    "submission",
				EntityID:  "s1",
				ProjectID: "p1",
				OldState:  "PENDING_SUPERVISOR",
				NewState:  "APPROVED_BY_SUPERVISOR",
				Actor:     testutil.Supervisor,
				At:        at,
				Data:      map[string]interface{}{"version": 2},
			},
			wantSubject: "Document approved by supervisor",
			wantText:    []string{"s1", "project p1", "PENDING_SUPERVISOR -> APPROVED_BY_SUPERVISOR", "version: 2", "sup-1"},
		},
		{
			name: "release",
			evt: core.Event{
				Kind:      core.EventResultReleased,
				Entity:    "final result",
				EntityID:  "p1",
				ProjectID: "p1",
				Actor:     testutil.Coordinator,
				At:        at,
				Data:      map[string]interface{}{"total_score": 87.0},
			},
			wantSubject: "Final result released",
			wantText:    []string{"project p1 has been released", "total_score: 87"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emailsvc.ResetSentMessages()
			n.Handle(tt.evt)

			sent := emailsvc.Sent()
			if tt.wantText == nil {
				assert.Empty(t, sent)
				return
			}
			require.Len(t, sent, 1)
			msg := sent[0]
			require.Len(t, msg.To, 1)
			assert.Equal(t, "coordination@fyp.test", msg.To[0].Address)
			assert.Equal(t, tt.wantSubject, msg.Subject)
			for _, s := range tt.wantText {
				assert.True(t, strings.Contains(msg.TextContent, s), "%q not in %q", s, msg.TextContent)
			}
			assert.NotEmpty(t, msg.HTMLContent)
		})
	}
}

func TestNewStaticDirectory(t *testing.T) {
	dir := notify.NewStaticDirectory([]string{"Coordination <coord@fyp.test>", "not an address", " sup@fyp.test "})
	addrs := dir.Recipients(core.Event{})
	require.Len(t, addrs, 2)
	assert.Equal(t, "Coordination", addrs[0].Name)
	assert.Equal(t, "sup@fyp.test", addrs[1].Address)
}

func TestNotifier_noRecipients(t *testing.T) {
	conf := testutil.NewConfig()
	logger := new(testutil.Logger)
	emailsvc.ResetSentMessages()

	n := notify.NewNotifier(emailsvc.NewConsoleServiceMock(conf, logger), notify.StaticDirectory{}, logger)
	n.Handle(core.Event{Kind: core.EventEvaluationFinalized})
	assert.Empty(t, emailsvc.Sent())
}

func TestAuditor_Handle(t *testing.T) {
	logger := new(testutil.Logger)
	a := notify.NewAuditor(logger)
	a.Handle(core.Event{
		Kind:      core.EventResultComputed,
		Entity:    "final result",
		EntityID:  "p1",
		ProjectID: "p1",
		NewState:  "computed",
		Actor:     testutil.Coordinator,
		Data:      map[string]interface{}{"total_score": 87.0},
	})

	entries := logger.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "info", entries[0].Level)
	assert.True(t, strings.HasPrefix(entries[0].Msg, "audit: result.computed"))
	require.Len(t, entries[0].Args, 2)
	fields := entries[0].Args[0].(map[string]interface{})
	assert.Equal(t, 87.0, fields["data.total_score"])
	assert.Equal(t, "p1", fields["project_id"])
	assert.Equal(t, testutil.Coordinator, entries[0].Args[1])
}

// Package notify turns lifecycle events into emails and audit log lines.
package notify

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/kat-co/vala"

	"github.com/trezcool/fyp/core"
)

var subjects = map[core.EventKind]string{
	core.EventSubmissionUploaded:    "New document submitted",
	core.EventSubmissionMarkedFinal: "Document marked as final",
	core.EventSubmissionApproved:    "Document approved by supervisor",
	core.EventRevisionRequested:     "Revision requested",
	core.EventSubmissionLocked:      "Document locked for evaluation",
	core.EventEvaluationStarted:     "Evaluation started",
	core.EventEvaluationFinalized:   "Evaluation finalized",
	core.EventMarksFinalized:        "Evaluation marks finalized",
	core.EventResultReleased:        "Final result released",
}

type (
	// Directory resolves who should hear about an event.
	Directory interface {
		Recipients(evt core.Event) []mail.Address
	}

	// StaticDirectory sends every notification to the same mailboxes.
	StaticDirectory []mail.Address

	Notifier struct {
		mailSvc   core.EmailService
		directory Directory
		logger    core.Logger
	}

	templateData struct {
		Title     string
		Kind      string
		Entity    string
		EntityID  string
		ProjectID string
		OldState  string
		NewState  string
		ActorID   string
		At        string
		Details   []detail
	}

	detail struct {
		Key   string
		Value string
	}
)

var _ core.Subscriber = (*Notifier)(nil)

// NewStaticDirectory parses the addresses, skipping invalid ones.
func NewStaticDirectory(addrs []string) StaticDirectory {
	dir := make(StaticDirectory, 0, len(addrs))
	for _, a := range addrs {
		if addr, err := mail.ParseAddress(strings.TrimSpace(a)); err == nil {
			dir = append(dir, *addr)
		}
	}
	return dir
}

func (d StaticDirectory) Recipients(core.Event) []mail.Address {
	return d
}

func NewNotifier(mailSvc core.EmailService, directory Directory, logger core.Logger) *Notifier {
	vala.BeginValidation().Validate(
		vala.IsNotNil(mailSvc, "mailSvc"),
		vala.IsNotNil(directory, "directory"),
		vala.IsNotNil(logger, "logger"),
	).CheckAndPanic()
	return &Notifier{mailSvc: mailSvc, directory: directory, logger: logger}
}

// Handle emails the recipients of notable events. Other events are ignored.
func (n *Notifier) Handle(evt core.Event) {
	subject, ok := subjects[evt.Kind]
	if !ok {
		return
	}
	to := n.directory.Recipients(evt)
	if len(to) == 0 {
		n.logger.Debug(fmt.Sprintf("notify: no recipients for %s", evt.Kind))
		return
	}

	tmpl := "event"
	if evt.Kind == core.EventResultReleased {
		tmpl = "result_released"
	}
	n.mailSvc.SendMessages(&core.EmailMessage{
		To:           to,
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: newTemplateData(subject, evt),
	})
}

func newTemplateData(title string, evt core.Event) templateData {
	data := templateData{
		Title:     title,
		Kind:      string(evt.Kind),
		Entity:    evt.Entity,
		EntityID:  evt.EntityID,
		ProjectID: evt.ProjectID,
		OldState:  evt.OldState,
		NewState:  evt.NewState,
		ActorID:   evt.Actor.ID,
		At:        evt.At.Format("2006-01-02 15:04 MST"),
	}
	for _, key := range sortedKeys(evt.Data) {
		data.Details = append(data.Details, detail{Key: key, Value: fmt.Sprint(evt.Data[key])})
	}
	return data
}

package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/trezcool/fyp/core"
	"github.com/trezcool/fyp/core/deadline"
	"github.com/trezcool/fyp/core/doctype"
	"github.com/trezcool/fyp/core/evaluation"
	"github.com/trezcool/fyp/core/project"
	"github.com/trezcool/fyp/core/result"
	"github.com/trezcool/fyp/core/submission"
	"github.com/trezcool/fyp/storage/database/dummy"
)

var (
	Coordinator = core.Actor{ID: "coord-1", Role: core.RoleCoordinator}
	Supervisor  = core.Actor{ID: "sup-1", Role: core.RoleSupervisor}
	Student     = core.Actor{ID: "std-1", Role: core.RoleStudent}
)

// Evaluator returns the n-th committee member.
func Evaluator(n int) core.Actor {
	return core.Actor{ID: fmt.Sprintf("eval-%d", n), Role: core.RoleEvaluator}
}

func FloatPtr(f float64) *float64 { return &f }

func TimePtr(t time.Time) *time.Time { return &t }

// NewConfig returns the configuration used by tests; it does not read the environment.
func NewConfig() *core.Config {
	return &core.Config{
		AppName:  "FYP",
		Env:      "TEST",
		Debug:    true,
		TestMode: true,
		Server: core.ServerConfig{
			Host:               ":0",
			ShutdownTimeout:    time.Second,
			SecretKey:          "test-secret",
			JWTExpirationDelta: time.Hour,
			DisableReqLogs:     true,
		},
		Database: core.DatabaseConfig{Engine: "memory", TxTimeout: time.Second},
		Mail: core.MailConfig{
			DefaultFromEmail: "FYP <noreply@fyp.test>",
			NotifyTo:         []string{"coordination@fyp.test"},
		},
		Scoring: core.ScoringConfig{
			SupervisorApprovalScore: 100,
			RequireAllMarksFinal:    true,
		},
	}
}

// LogEntry is a message recorded by Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records log messages instead of printing them.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
	l.mu.Unlock()
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

func (l *Logger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// EventRecorder keeps every event it receives.
type EventRecorder struct {
	mu     sync.Mutex
	events []core.Event
}

var _ core.Subscriber = (*EventRecorder)(nil)

func (rec *EventRecorder) Handle(evt core.Event) {
	rec.mu.Lock()
	rec.events = append(rec.events, evt)
	rec.mu.Unlock()
}

func (rec *EventRecorder) Events() []core.Event {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	out := make([]core.Event, len(rec.events))
	copy(out, rec.events)
	return out
}

// Kinds returns the kinds of the recorded events, in order.
func (rec *EventRecorder) Kinds() []core.EventKind {
	evts := rec.Events()
	kinds := make([]core.EventKind, 0, len(evts))
	for _, evt := range evts {
		kinds = append(kinds, evt.Kind)
	}
	return kinds
}

func (rec *EventRecorder) Reset() {
	rec.mu.Lock()
	rec.events = nil
	rec.mu.Unlock()
}

// Env wires every service over a fresh in-memory database.
type Env struct {
	Conf    *core.Config
	DB      *dummydb.DB
	Logger  *Logger
	Events  *EventRecorder
	Bus     *core.EventBus
	Checker *core.Checker

	Projects       project.Repository
	SubmissionRepo submission.Repository
	MarksRepo      evaluation.Repository
	ResultRepo     result.Repository

	DocTypes    *doctype.Service
	Deadlines   *deadline.Service
	Submissions *submission.Service
	Evaluations *evaluation.Service
	Results     *result.Service
}

// NewEnv sets up an Env. Events are delivered synchronously.
func NewEnv(t *testing.T, conf ...*core.Config) *Env {
	t.Helper()
	cfg := NewConfig()
	if len(conf) > 0 {
		cfg = conf[0]
	}
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open(): %v", err)
	}

	env := &Env{
		Conf:    cfg,
		DB:      db,
		Logger:  new(Logger),
		Events:  new(EventRecorder),
		Checker: core.NewChecker(),
	}
	env.Bus = core.NewSyncEventBus(env.Logger)
	env.Bus.Subscribe(env.Events)

	env.Projects = dummydb.NewProjectRepository(db)
	env.SubmissionRepo = dummydb.NewSubmissionRepository(db)
	env.MarksRepo = dummydb.NewMarksRepository(db)
	env.ResultRepo = dummydb.NewResultRepository(db)

	env.DocTypes = doctype.NewService(dummydb.NewDocumentTypeRepository(db), env.Checker, env.Bus, env.Logger)
	env.Deadlines = deadline.NewService(dummydb.NewBatchRepository(db), env.Projects, env.DocTypes, env.Checker, env.Bus)
	env.Submissions = submission.NewService(
		env.SubmissionRepo, db, env.DocTypes, env.Deadlines, env.MarksRepo, env.Checker, env.Bus, cfg.Scoring,
	)
	env.Evaluations = evaluation.NewService(env.MarksRepo, env.SubmissionRepo, db, env.Checker, env.Bus)
	env.Results = result.NewService(
		env.ResultRepo, db, env.Projects, env.DocTypes, env.SubmissionRepo, env.Evaluations, env.Bus, env.Logger, cfg.Scoring,
	)
	return env
}

func (env *Env) CreateDocType(t *testing.T, code doctype.Code, ws, wc, order int) doctype.DocumentType {
	t.Helper()
	dt, err := env.DocTypes.Create(context.Background(), doctype.NewDocumentType{
		Code:             string(code),
		Title:            string(code),
		WeightSupervisor: ws,
		WeightCommittee:  wc,
		DisplayOrder:     order,
	}, Coordinator)
	if err != nil {
		t.Fatalf("CreateDocType(%s): %v", code, err)
	}
	return dt
}

// CreateProject saves a project approved at approvedAt (nil for a project under approval).
func (env *Env) CreateProject(t *testing.T, id string, approvedAt *time.Time) project.Project {
	t.Helper()
	p, err := env.Projects.SaveProject(context.Background(), project.Project{
		ID:         id,
		Title:      "Project " + id,
		ApprovedAt: approvedAt,
		CreatedAt:  core.NowFunc(),
	})
	if err != nil {
		t.Fatalf("CreateProject(%s): %v", id, err)
	}
	return p
}

func (env *Env) Upload(t *testing.T, projectID, docTypeID string) submission.Submission {
	t.Helper()
	sub, err := env.Submissions.Upload(context.Background(), submission.NewUpload{
		ProjectID:      projectID,
		DocumentTypeID: docTypeID,
		FileName:       "document.pdf",
	}, Student)
	if err != nil {
		t.Fatalf("Upload(%s, %s): %v", projectID, docTypeID, err)
	}
	return sub
}

func (env *Env) Approve(t *testing.T, submissionID string, score *float64) submission.Submission {
	t.Helper()
	sub, err := env.Submissions.Approve(context.Background(), submissionID, submission.Approval{Score: score}, Supervisor)
	if err != nil {
		t.Fatalf("Approve(%s): %v", submissionID, err)
	}
	return sub
}

// StartEvaluation drives an approved submission to EVAL_IN_PROGRESS.
func (env *Env) StartEvaluation(t *testing.T, submissionID string) submission.Submission {
	t.Helper()
	ctx := context.Background()
	if _, err := env.Submissions.LockForEvaluation(ctx, submissionID, Coordinator); err != nil {
		t.Fatalf("LockForEvaluation(%s): %v", submissionID, err)
	}
	sub, err := env.Submissions.StartEvaluation(ctx, submissionID, Coordinator)
	if err != nil {
		t.Fatalf("StartEvaluation(%s): %v", submissionID, err)
	}
	return sub
}

func (env *Env) Score(t *testing.T, submissionID string, evaluator core.Actor, score float64, finalize bool) evaluation.Marks {
	t.Helper()
	m, err := env.Evaluations.SubmitOrUpdate(context.Background(), submissionID, evaluation.NewMarks{
		Score:    score,
		Finalize: finalize,
	}, evaluator)
	if err != nil {
		t.Fatalf("Score(%s, %s): %v", submissionID, evaluator.ID, err)
	}
	return m
}

// Evaluate uploads, approves and evaluates a document with the given final committee scores.
func (env *Env) Evaluate(t *testing.T, projectID, docTypeID string, supScore *float64, scores ...float64) submission.Submission {
	t.Helper()
	sub := env.Upload(t, projectID, docTypeID)
	env.Approve(t, sub.ID, supScore)
	env.StartEvaluation(t, sub.ID)
	for i, s := range scores {
		env.Score(t, sub.ID, Evaluator(i+1), s, true)
	}
	finalized, err := env.Submissions.FinalizeEvaluation(context.Background(), sub.ID, Coordinator)
	if err != nil {
		t.Fatalf("FinalizeEvaluation(%s): %v", sub.ID, err)
	}
	return finalized
}

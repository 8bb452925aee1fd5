package agent

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/trackpulse/trackpulse/internal/config"
	"github.com/trackpulse/trackpulse/internal/explain"
	"github.com/trackpulse/trackpulse/internal/nl2sql"
	"github.com/trackpulse/trackpulse/internal/session"
	"github.com/trackpulse/trackpulse/internal/sqlexec"
)

type fakeTranslator struct {
	result   nl2sql.ParseResult
	lastCtx  nl2sql.Context
	panicOut bool
}

func (f *fakeTranslator) ParseQuestion(_ context.Context, question string, qctx nl2sql.Context) nl2sql.ParseResult {
	if f.panicOut {
		panic("translator blew up")
	}
	f.lastCtx = qctx
	result := f.result
	result.Question = question
	return result
}

type fakeExecutor struct {
	result sqlexec.Result
	calls  int
}

func (f *fakeExecutor) Execute(_ context.Context, sql string, _ time.Duration, _ int) sqlexec.Result {
	f.calls++
	result := f.result
	result.SQL = sql
	return result
}

type fakeExplainer struct {
	calls int
}

func (f *fakeExplainer) Explain(_ context.Context, question string, result sqlexec.Result, _ bool) explain.Explanation {
	f.calls++
	return explain.Explanation{Question: question, QuerySuccess: result.Success}
}

func validParse() nl2sql.ParseResult {
	return nl2sql.ParseResult{
		SQLQuery:   "SELECT COUNT(*) FROM athletes;",
		RawSQL:     "SELECT COUNT(*) FROM athletes;",
		IsValid:    true,
		Errors:     []string{},
		Warnings:   []string{},
		Confidence: 0.9,
	}
}

func countResult() sqlexec.Result {
	return sqlexec.Result{
		Success:       true,
		ExecutionTime: 0.01,
		RowCount:      1,
		Columns:       []string{"count"},
		Data:          []map[string]any{{"count": int64(42)}},
		Metadata:      &sqlexec.Metadata{QueryType: "select", HasAggregation: true, EstimatedComplexity: "simple"},
	}
}

func newAgent(translator Translator, executor Executor) (*Agent, session.Store) {
	store := session.NewMemoryStore()
	return New(translator, executor, &fakeExplainer{}, store, sqlexec.NewMonitor(5*time.Second, nil), config.AgentConfig{ContextQueries: 3}, nil), store
}

func TestProcessQuestionHappyPath(t *testing.T) {
	translator := &fakeTranslator{result: validParse()}
	executor := &fakeExecutor{result: countResult()}
	agent, store := newAgent(translator, executor)

	resp := agent.ProcessQuestion(context.Background(), Request{
		Question:           "How many athletes are in the database?",
		SessionID:          "workout-review",
		IncludeExplanation: true,
	})

	if !resp.Success {
		t.Fatalf("Success = false, error = %q", resp.Error)
	}
	if resp.SQLGeneration == nil || resp.SQLGeneration.SQLQuery != "SELECT COUNT(*) FROM athletes;" {
		t.Fatalf("SQLGeneration = %+v", resp.SQLGeneration)
	}
	if resp.Execution == nil || resp.Execution.RowCount != 1 {
		t.Fatalf("Execution = %+v", resp.Execution)
	}
	if resp.Explanation == nil || !resp.Explanation.QuerySuccess {
		t.Fatalf("Explanation = %+v", resp.Explanation)
	}
	if resp.Summary != "Found 1 record that answers your question." {
		t.Fatalf("Summary = %q", resp.Summary)
	}
	if resp.Performance == nil || resp.Performance.QueryComplexity != "simple" {
		t.Fatalf("Performance = %+v", resp.Performance)
	}

	sess, err := store.Get(context.Background(), "workout-review")
	if err != nil || sess == nil {
		t.Fatalf("session missing after processing: %v", err)
	}
	if len(sess.History) != 1 || !sess.History[0].SQLSuccess {
		t.Fatalf("session history = %+v", sess.History)
	}
}

func TestProcessQuestionSkipsExecutionWhenInvalid(t *testing.T) {
	translator := &fakeTranslator{result: nl2sql.ParseResult{
		IsValid:    false,
		Errors:     []string{"Only SELECT queries are allowed"},
		Warnings:   []string{},
		Confidence: 0.3,
	}}
	executor := &fakeExecutor{result: countResult()}
	agent, _ := newAgent(translator, executor)

	resp := agent.ProcessQuestion(context.Background(), Request{
		Question:           "Drop all the tables",
		SessionID:          "hostile",
		IncludeExplanation: true,
	})

	if resp.Success {
		t.Fatal("Success = true for rejected SQL")
	}
	if executor.calls != 0 {
		t.Fatalf("executor calls = %d, want 0", executor.calls)
	}
	if resp.Execution == nil || resp.Execution.Success {
		t.Fatalf("Execution = %+v", resp.Execution)
	}
	if !strings.Contains(resp.Summary, "Only SELECT queries are allowed") {
		t.Fatalf("Summary = %q", resp.Summary)
	}
}

func TestProcessQuestionGeneratesSessionID(t *testing.T) {
	translator := &fakeTranslator{result: validParse()}
	agent, _ := newAgent(translator, &fakeExecutor{result: countResult()})

	resp := agent.ProcessQuestion(context.Background(), Request{Question: "How many athletes?"})
	if resp.SessionID == "" {
		t.Fatal("blank session id not replaced")
	}
}

func TestProcessQuestionFeedsSessionContext(t *testing.T) {
	translator := &fakeTranslator{result: validParse()}
	executor := &fakeExecutor{result: countResult()}
	agent, _ := newAgent(translator, executor)
	ctx := context.Background()

	agent.ProcessQuestion(ctx, Request{Question: "How many athletes are there?", SessionID: "ctx"})
	agent.ProcessQuestion(ctx, Request{Question: "And how many events?", SessionID: "ctx"})

	if len(translator.lastCtx.RecentQueries) != 1 {
		t.Fatalf("RecentQueries = %+v, want the first exchange", translator.lastCtx.RecentQueries)
	}
	if translator.lastCtx.RecentQueries[0].Question != "How many athletes are there?" {
		t.Fatalf("RecentQueries[0] = %+v", translator.lastCtx.RecentQueries[0])
	}
}

func TestProcessQuestionRecoversFromPanic(t *testing.T) {
	translator := &fakeTranslator{panicOut: true}
	agent, store := newAgent(translator, &fakeExecutor{})

	resp := agent.ProcessQuestion(context.Background(), Request{Question: "boom", SessionID: "crash"})
	if resp.Success {
		t.Fatal("Success = true after panic")
	}
	if !strings.Contains(resp.Error, "internal error") {
		t.Fatalf("Error = %q", resp.Error)
	}

	sess, _ := store.Get(context.Background(), "crash")
	if sess == nil || len(sess.History) != 1 || sess.History[0].Error == "" {
		t.Fatalf("panic exchange not recorded: %+v", sess)
	}
}

func TestSessionHistory(t *testing.T) {
	translator := &fakeTranslator{result: validParse()}
	agent, _ := newAgent(translator, &fakeExecutor{result: countResult()})
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		agent.ProcessQuestion(ctx, Request{Question: "How many athletes?", SessionID: "hist"})
	}

	history, err := agent.SessionHistory(ctx, "hist")
	if err != nil {
		t.Fatalf("SessionHistory() error = %v", err)
	}
	if history.TotalQueries != 7 || history.SuccessfulQueries != 7 {
		t.Fatalf("history = %+v", history)
	}
	if len(history.RecentQueries) != 5 {
		t.Fatalf("len(RecentQueries) = %d, want 5", len(history.RecentQueries))
	}

	missing, err := agent.SessionHistory(ctx, "nope")
	if err != nil {
		t.Fatalf("SessionHistory() error = %v", err)
	}
	if missing != nil {
		t.Fatalf("missing session = %+v, want nil", missing)
	}
}

func TestSystemStats(t *testing.T) {
	translator := &fakeTranslator{result: validParse()}
	agent, _ := newAgent(translator, &fakeExecutor{result: countResult()})
	ctx := context.Background()

	agent.ProcessQuestion(ctx, Request{Question: "How many athletes?", SessionID: "a"})
	agent.ProcessQuestion(ctx, Request{Question: "How many events?", SessionID: "b"})

	stats, err := agent.SystemStats(ctx)
	if err != nil {
		t.Fatalf("SystemStats() error = %v", err)
	}
	if stats.TotalSessions != 2 || stats.ActiveSessions != 2 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.SuccessRate != 100.0 {
		t.Fatalf("SuccessRate = %v", stats.SuccessRate)
	}
	if stats.Performance.TotalQueries != 2 {
		t.Fatalf("Performance = %+v", stats.Performance)
	}
}

func TestRoundingHelpers(t *testing.T) {
	cases := []struct {
		in    float64
		want3 float64
		want1 float64
	}{
		{0.0015, 0.002, 0.0},
		{1.2344, 1.234, 1.2},
		{2.0 / 3.0 * 100, 66.667, 66.7},
		{0.05, 0.05, 0.1},
	}
	for _, tc := range cases {
		if got := round3(tc.in); got != tc.want3 {
			t.Fatalf("round3(%v) = %v, want %v", tc.in, got, tc.want3)
		}
		if got := round1(tc.in); got != tc.want1 {
			t.Fatalf("round1(%v) = %v, want %v", tc.in, got, tc.want1)
		}
	}
}

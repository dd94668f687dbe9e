package core

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prakeerthprasadoff/AILearningHelper/internal/files"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/llm"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/store"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/wolfram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	mu        sync.Mutex
	requests  []llm.Request
	responses []*llm.Response
	err       error
	chunks    []string
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Close() error { return nil }

func (f *fakeProvider) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		return &llm.Response{Content: "ok"}, nil
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeProvider) Stream(_ context.Context, req llm.Request, onChunk func(string) error) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	for _, c := range f.chunks {
		if err := onChunk(c); err != nil {
			return err
		}
	}
	return f.err
}

type fakeSolver struct {
	enabled  bool
	solution *wolfram.Solution
	err      error
	asked    []string
}

func (f *fakeSolver) Enabled() bool { return f.enabled }

func (f *fakeSolver) FetchWithSteps(_ context.Context, q string) (*wolfram.Solution, error) {
	f.asked = append(f.asked, q)
	return f.solution, f.err
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "core.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newFileService(t *testing.T) *files.Service {
	t.Helper()
	disk, err := files.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	return files.NewService(disk)
}

func TestReplyBuildsTutorPrompt(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{{Content: "  What do you get if you subtract 5 first?  "}}}
	svc := NewChatService(nil, NewRAGService(nil, nil), provider, nil, false)

	reply, err := svc.Reply(context.Background(), ChatRequest{
		Message:    "solve 2x + 5 = 15",
		CourseName: "Algebra I",
		History: []HistoryEntry{
			{Role: "user", Content: "hi"},
			{Role: "assistant", Content: "Hello!"},
			{Role: "system", Content: "ignored"},
			{Role: "user", Content: "   "},
			{Role: "user", Content: "solve 2x + 5 = 15"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "What do you get if you subtract 5 first?", reply)

	require.Len(t, provider.requests, 1)
	req := provider.requests[0]
	assert.Empty(t, req.Tools)
	require.Len(t, req.Messages, 4)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "You are currently helping with Algebra I.")
	assert.NotContains(t, req.Messages[0].Content, "solve_math_problem")
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "hi"}, req.Messages[1])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "Hello!"}, req.Messages[2])
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "solve 2x + 5 = 15"}, req.Messages[3])
}

func TestReplyRunsMathTool(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: solveMathToolName, Arguments: `{"problem":"solve x^2 - 4 = 0"}`}}},
		{Content: "Let's look at the steps together."},
	}}
	solver := &fakeSolver{enabled: true, solution: &wolfram.Solution{Answer: "x = ±2", Steps: "Add 4 to both sides"}}
	svc := NewChatService(nil, nil, provider, solver, false)

	reply, err := svc.Reply(context.Background(), ChatRequest{Message: "solve x^2 - 4 = 0", CourseName: "Algebra I"})
	require.NoError(t, err)
	assert.Equal(t, "Let's look at the steps together.", reply)
	assert.Equal(t, []string{"solve x^2 - 4 = 0"}, solver.asked)

	require.Len(t, provider.requests, 2)
	assert.Len(t, provider.requests[0].Tools, 1)
	assert.Contains(t, provider.requests[0].Messages[0].Content, "solve_math_problem")

	follow := provider.requests[1].Messages
	require.GreaterOrEqual(t, len(follow), 2)
	asst, tool := follow[len(follow)-2], follow[len(follow)-1]
	assert.Equal(t, llm.RoleAssistant, asst.Role)
	assert.Len(t, asst.ToolCalls, 1)
	assert.Equal(t, llm.RoleTool, tool.Role)
	assert.Equal(t, "call_1", tool.ToolCallID)

	var result MathToolResult
	require.NoError(t, json.Unmarshal([]byte(tool.Content), &result))
	assert.True(t, result.Success)
	assert.Equal(t, "x = ±2", result.Answer)
	assert.Contains(t, result.SolutionSummary, "Final Answer: x = ±2")
}

func TestReplyUnknownToolAndBadArguments(t *testing.T) {
	provider := &fakeProvider{responses: []*llm.Response{
		{ToolCalls: []llm.ToolCall{
			{ID: "a", Name: "browse_web", Arguments: `{}`},
			{ID: "b", Name: solveMathToolName, Arguments: `not json`},
		}},
		{Content: ""},
	}}
	svc := NewChatService(nil, nil, provider, &fakeSolver{enabled: true}, false)

	reply, err := svc.Reply(context.Background(), ChatRequest{Message: "help"})
	require.NoError(t, err)
	assert.Equal(t, emptyReplyText, reply)

	msgs := provider.requests[1].Messages
	assert.Contains(t, msgs[len(msgs)-2].Content, "unknown tool browse_web")
	assert.Contains(t, msgs[len(msgs)-1].Content, "invalid arguments")
}

func TestReplyErrors(t *testing.T) {
	svc := NewChatService(nil, nil, &fakeProvider{err: errors.New("upstream down")}, nil, false)

	_, err := svc.Reply(context.Background(), ChatRequest{Message: "hello"})
	assert.ErrorContains(t, err, "upstream down")

	_, err = svc.Reply(context.Background(), ChatRequest{Message: "  "})
	assert.Error(t, err)
}

func TestReplyPersistsAndRecallsSimilarQuestion(t *testing.T) {
	db := newTestStore(t)
	provider := &fakeProvider{}
	svc := NewChatService(db, NewRAGService(db, nil), provider, nil, false)
	ctx := context.Background()

	_, err := svc.Reply(ctx, ChatRequest{Message: "what is the derivative of x squared", CourseName: "Calculus I", UserIdentifier: "stu-1"})
	require.NoError(t, err)
	assert.NotContains(t, provider.requests[0].Messages[0].Content, "previously asked")

	_, err = svc.Reply(ctx, ChatRequest{Message: "what is the derivative of x cubed", CourseName: "Calculus I", UserIdentifier: "stu-1"})
	require.NoError(t, err)
	assert.Contains(t, provider.requests[1].Messages[0].Content, `previously asked: "what is the derivative of x squared"`)

	user, err := db.GetOrCreateUser("stu-1")
	require.NoError(t, err)
	turns, err := db.GetRecentChatHistory(user.ID, "Calculus I", 10)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	assert.Equal(t, store.RoleUser, turns[0].Role)
	assert.Equal(t, "ok", turns[1].Content)
}

func TestReplyResumesStoredHistoryWithoutClientHistory(t *testing.T) {
	db := newTestStore(t)
	provider := &fakeProvider{}
	svc := NewChatService(db, NewRAGService(db, nil), provider, nil, false)
	ctx := context.Background()

	_, err := svc.Reply(ctx, ChatRequest{Message: "what is a limit", CourseName: "Calculus I", UserIdentifier: "stu-2"})
	require.NoError(t, err)
	_, err = svc.Reply(ctx, ChatRequest{Message: "what is a vector", CourseName: "Physics", UserIdentifier: "stu-2"})
	require.NoError(t, err)

	_, err = svc.Reply(ctx, ChatRequest{Message: "and a derivative?", CourseName: "Calculus I", UserIdentifier: "stu-2"})
	require.NoError(t, err)
	msgs := provider.requests[2].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "what is a limit"}, msgs[1])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "ok"}, msgs[2])
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "and a derivative?"}, msgs[3])

	_, err = svc.Reply(ctx, ChatRequest{
		Message:        "new topic",
		CourseName:     "Calculus I",
		UserIdentifier: "stu-2",
		History:        []HistoryEntry{{Role: "user", Content: "new topic"}},
	})
	require.NoError(t, err)
	assert.Len(t, provider.requests[3].Messages, 2, "client history takes precedence")
}

func TestReplyIncludesSelectedDocuments(t *testing.T) {
	fileSvc := newFileService(t)
	up, err := fileSvc.Upload(context.Background(), "syllabus.md", []byte("Week 3 covers the chain rule."))
	require.NoError(t, err)

	provider := &fakeProvider{}
	svc := NewChatService(nil, NewRAGService(nil, files.NewExtractor(fileSvc)), provider, nil, false)

	_, err = svc.Reply(context.Background(), ChatRequest{
		Message:           "what is covered in week 3?",
		DocumentFilenames: []string{up.Filename, "gone_1_deadbeef.pdf"},
	})
	require.NoError(t, err)

	msgs := provider.requests[0].Messages
	last := msgs[len(msgs)-1].Content
	assert.Contains(t, last, "Week 3 covers the chain rule.")
	assert.Contains(t, last, "unavailable: gone_1_deadbeef.pdf")
	assert.True(t, strings.HasSuffix(last, "Student question: what is covered in week 3?"))
}

func TestStream(t *testing.T) {
	provider := &fakeProvider{chunks: []string{"a", "b"}}
	svc := NewChatService(nil, nil, provider, nil, false)

	var got []string
	err := svc.Stream(context.Background(), ChatRequest{Message: "go", CourseName: "Physics"}, func(c string) error {
		got = append(got, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Contains(t, provider.requests[0].Messages[0].Content, "helping with Physics")
}

func TestSolveMath(t *testing.T) {
	ctx := context.Background()

	res := SolveMath(ctx, nil, "derivative of sin(x)")
	assert.True(t, res.Success)
	assert.Contains(t, res.Steps, "cos(x)")
	assert.True(t, strings.HasPrefix(res.SolutionSummary, "Steps:\n"))

	res = SolveMath(ctx, nil, "what is love")
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)

	res = SolveMath(ctx, &fakeSolver{enabled: true, err: errors.New("timeout"), solution: &wolfram.Solution{}}, "solve 9x = 3")
	assert.False(t, res.Success)
	assert.Equal(t, "timeout", res.Error)

	res = SolveMath(ctx, &fakeSolver{enabled: true, err: errors.New("timeout"), solution: &wolfram.Solution{Steps: "built in"}}, "integrate x^2 dx")
	assert.True(t, res.Success, "worked steps survive a Wolfram failure")

	res = SolveMath(ctx, nil, "  ")
	assert.False(t, res.Success)
}

func TestGenerationUsesTopicAndDocuments(t *testing.T) {
	fileSvc := newFileService(t)
	up, err := fileSvc.Upload(context.Background(), "notes.txt", []byte("Newton's second law: F = ma"))
	require.NoError(t, err)

	provider := &fakeProvider{responses: []*llm.Response{{Content: "# Guide"}, {Content: "1. Q"}}}
	svc := NewGenerationService(nil, NewRAGService(nil, files.NewExtractor(fileSvc)), provider)

	guide, err := svc.StudyGuide(context.Background(), GenerateRequest{CourseName: "Physics", Topic: "forces", DocumentFilenames: []string{up.Filename}})
	require.NoError(t, err)
	assert.Equal(t, "# Guide", guide)

	exam, err := svc.PracticeExam(context.Background(), GenerateRequest{CourseName: "Physics"})
	require.NoError(t, err)
	assert.Equal(t, "1. Q", exam)

	guideReq := provider.requests[0]
	assert.Equal(t, generationMaxTokens, guideReq.MaxTokens)
	user := guideReq.Messages[1].Content
	assert.Contains(t, user, "F = ma")
	assert.Contains(t, user, "study guide for Physics covering forces")
	assert.Contains(t, provider.requests[1].Messages[1].Content, "practice exam for Physics")
}

func TestGenerationEmptyResult(t *testing.T) {
	svc := NewGenerationService(nil, nil, &fakeProvider{responses: []*llm.Response{{Content: "  "}}})
	_, err := svc.StudyGuide(context.Background(), GenerateRequest{CourseName: "Physics"})
	assert.ErrorIs(t, err, llm.ErrEmptyResponse)
}

func TestWeeklyReview(t *testing.T) {
	db := newTestStore(t)
	provider := &fakeProvider{responses: []*llm.Response{{Content: "Here you go:\n1. Redo the chain rule example\n2) Explain why sin(x)/x -> 1\n- Practice one integral\n"}}}
	svc := NewGenerationService(db, nil, provider)
	learning := NewLearningService(db)
	ctx := context.Background()

	empty, err := svc.WeeklyReview(ctx, "stu-9", "")
	require.NoError(t, err)
	assert.Equal(t, &WeeklyReview{Message: noReviewDataMessage}, empty)
	assert.Empty(t, provider.requests)

	require.NoError(t, learning.AddMistake("stu-9", &store.Mistake{Course: "Calculus I", Topic: "chain rule", Question: "d/dx sin(2x)", Correction: "2cos(2x)"}))

	review, err := svc.WeeklyReview(ctx, "stu-9", "Calculus I")
	require.NoError(t, err)
	assert.Equal(t, []string{"Redo the chain rule example", "Explain why sin(x)/x -> 1", "Practice one integral"}, review.ReviewPrompts)
	assert.Contains(t, review.FullText, "Here you go:")
	assert.Empty(t, review.Message)
	assert.Contains(t, provider.requests[0].Messages[1].Content, "[Calculus I / chain rule] d/dx sin(2x) (correction: 2cos(2x))")
}

func TestLearningService(t *testing.T) {
	db := newTestStore(t)
	svc := NewLearningService(db)

	m := &store.Mistake{Course: "Physics", Question: "units of force"}
	require.NoError(t, svc.AddMistake("alice", m))

	assert.ErrorIs(t, svc.DeleteMistake("bob", m.ID), ErrMistakeNotFound)
	require.NoError(t, svc.DeleteMistake("alice", m.ID))
	assert.ErrorIs(t, svc.DeleteMistake("alice", m.ID), ErrMistakeNotFound)

	plan, err := svc.GetStudyPlan("alice")
	require.NoError(t, err)
	assert.Nil(t, plan)

	require.NoError(t, svc.SaveStudyPlan("alice", json.RawMessage(`"review limits on monday"`)))
	plan, err = svc.GetStudyPlan("alice")
	require.NoError(t, err)
	assert.JSONEq(t, `{"notes":"review limits on monday"}`, string(plan.Plan))

	require.NoError(t, svc.SaveStudyPlan("alice", json.RawMessage(` {"monday":["limits"]} `)))
	plan, err = svc.GetStudyPlan("alice")
	require.NoError(t, err)
	assert.JSONEq(t, `{"monday":["limits"]}`, string(plan.Plan))

	require.NoError(t, svc.SaveStudyPlan("alice", json.RawMessage(`[1,2]`)))
	plan, err = svc.GetStudyPlan("alice")
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(plan.Plan))

	for _, bad := range []string{`[1,`, `42`, `null`, `{"a":`, ``} {
		assert.ErrorIs(t, svc.SaveStudyPlan("alice", json.RawMessage(bad)), ErrInvalidPlan, bad)
	}

	_, err = svc.ListMistakes("  ", "")
	assert.ErrorIs(t, err, store.ErrEmptyIdentifier)
}

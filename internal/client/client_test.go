package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prakeerthprasadoff/AILearningHelper/internal/api"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/auth"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/core"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/files"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/llm"
	"github.com/prakeerthprasadoff/AILearningHelper/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var demo = auth.Credentials{Email: "student@example.com", Password: "password123"}

type scriptedProvider struct {
	mu    sync.Mutex
	reply string
	err   error
	last  llm.Request
}

func (p *scriptedProvider) Name() string { return "scripted" }
func (p *scriptedProvider) Close() error { return nil }

func (p *scriptedProvider) Complete(_ context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = req
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Content: p.reply}, nil
}

func (p *scriptedProvider) Stream(context.Context, llm.Request, func(string) error) error {
	return errors.New("not supported")
}

type backend struct {
	server   *httptest.Server
	provider *scriptedProvider
	requests atomic.Int64
}

// newBackend serves the real API router over SQLite and disk storage in a
// temp dir, with a scripted model behind it.
func newBackend(t *testing.T) *backend {
	t.Helper()
	db, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	disk, err := files.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	fileService := files.NewService(disk)

	b := &backend{provider: &scriptedProvider{reply: "Try factoring first."}}
	rag := core.NewRAGService(db, files.NewExtractor(fileService))
	h := api.NewAPIHandler(api.Deps{
		DB:         db,
		Chat:       core.NewChatService(db, rag, b.provider, nil, false),
		Generation: core.NewGenerationService(db, rag, b.provider),
		Learning:   core.NewLearningService(db),
		Files:      fileService,
		Tokens:     auth.NewTokenIssuer("secret"),
		Demo:       demo,
	})
	router := api.NewRouter(h, api.RouterOptions{})
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.requests.Add(1)
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) client(t *testing.T) *Client {
	t.Helper()
	return New(b.server.URL, "user_test")
}

func TestGateLogin(t *testing.T) {
	b := newBackend(t)
	c := b.client(t)
	ctx := context.Background()

	assert.False(t, c.Gate.IsAuthenticated())
	_, err := c.Gate.RequireSession()
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)

	_, err = c.Gate.Login(ctx, demo.Email, "nope")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	assert.False(t, c.Gate.IsAuthenticated())

	_, err = c.Gate.Login(ctx, "STUDENT@example.com", demo.Password)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	before := b.requests.Load()
	_, err = c.Gate.Login(ctx, "  ", "")
	assert.True(t, IsKind(err, ValidationFailure))
	assert.ErrorIs(t, err, auth.ErrMissingCredentials)
	assert.Equal(t, before, b.requests.Load())

	session, err := c.Gate.Login(ctx, demo.Email, demo.Password)
	require.NoError(t, err)
	assert.Equal(t, demo.Email, session.Email())
	assert.NotEmpty(t, session.Token())
	assert.True(t, c.Gate.IsAuthenticated())

	got, err := c.Gate.RequireSession()
	require.NoError(t, err)
	assert.Same(t, session, got)

	c.Gate.Logout()
	assert.False(t, c.Gate.IsAuthenticated())
}

func TestCourseRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, DefaultCourses[0], r.Default())

	c, ok := r.Lookup("linalg")
	require.True(t, ok)
	assert.Equal(t, "Linear Algebra", c.Name)
	_, ok = r.Lookup("nope")
	assert.False(t, ok)

	r = NewRegistry(Course{ID: "a", Name: "A"}, Course{ID: "a", Name: "dup"}, Course{ID: "b", Name: "B"})
	assert.Len(t, r.All(), 2)
	assert.Equal(t, "A", r.Default().Name)
}

func TestDocumentSelection(t *testing.T) {
	d := NewDocumentSelection()
	assert.Equal(t, []string{}, d.Filenames())

	d.Set([]string{"b.pdf", "a.txt", "b.pdf", " ", "c.md"})
	assert.Equal(t, []string{"b.pdf", "a.txt", "c.md"}, d.Filenames())

	assert.False(t, d.Toggle("a.txt"))
	assert.True(t, d.Toggle("z.docx"))
	assert.Equal(t, []string{"b.pdf", "c.md", "z.docx"}, d.Filenames())
	assert.True(t, d.Contains("z.docx"))

	d.Clear()
	assert.Empty(t, d.Filenames())
}

func TestConversationResetsOnCourseSwitch(t *testing.T) {
	b := newBackend(t)
	c := b.client(t)
	ctx := context.Background()

	msgs := c.Conversation.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, SenderAssistant, msgs[0].Sender)
	assert.Contains(t, msgs[0].Text, DefaultCourses[0].Name)

	for i := 0; i < 3; i++ {
		require.True(t, c.Conversation.Send(ctx, fmt.Sprintf("question %d", i)))
	}
	assert.Len(t, c.Conversation.Messages(), 7)

	for _, id := range []string{"phys1", "phys1", "calc1"} {
		require.NoError(t, c.Conversation.SelectCourse(id))
		msgs = c.Conversation.Messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, SenderAssistant, msgs[0].Sender)
		assert.Equal(t, StateIdle, c.Conversation.State())
	}

	err := c.Conversation.SelectCourse("unknown")
	assert.ErrorIs(t, err, ErrUnknownCourse)
	assert.Equal(t, "calc1", c.Conversation.Course().ID)
}

func TestConversationIgnoresBlankMessages(t *testing.T) {
	b := newBackend(t)
	c := b.client(t)

	before := b.requests.Load()
	for _, text := range []string{"", "   ", "\n\t"} {
		assert.False(t, c.Conversation.Send(context.Background(), text))
	}
	assert.Len(t, c.Conversation.Messages(), 1)
	assert.Equal(t, before, b.requests.Load())
}

func TestConversationAppendsServerResponse(t *testing.T) {
	b := newBackend(t)
	c := b.client(t)
	c.Documents.Set([]string{"notes_1_abcd1234.txt"})
	ctx := context.Background()

	require.True(t, c.Conversation.Send(ctx, "How do I solve x^2 = 4?"))
	msgs := c.Conversation.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, Message{ID: msgs[1].ID, Sender: SenderStudent, Text: "How do I solve x^2 = 4?"}, msgs[1])
	assert.Equal(t, SenderAssistant, msgs[2].Sender)
	assert.Equal(t, "Try factoring first.", msgs[2].Text)
	assert.Equal(t, StateIdle, c.Conversation.State())

	// The stale document name is passed through and reported as unavailable.
	b.provider.mu.Lock()
	last := b.provider.last.Messages[len(b.provider.last.Messages)-1].Content
	b.provider.mu.Unlock()
	assert.Contains(t, last, "notes_1_abcd1234.txt")
}

func TestConversationFallbackOnFailure(t *testing.T) {
	b := newBackend(t)
	c := b.client(t)
	ctx := context.Background()

	b.provider.mu.Lock()
	b.provider.err = errors.New("model unavailable")
	b.provider.mu.Unlock()
	require.True(t, c.Conversation.Send(ctx, "help"))

	b.server.Close()
	require.True(t, c.Conversation.Send(ctx, "still there?"))

	msgs := c.Conversation.Messages()
	require.Len(t, msgs, 5)
	assert.Equal(t, FallbackReply, msgs[2].Text)
	assert.Equal(t, FallbackReply, msgs[4].Text)
	assert.Equal(t, StateIdle, c.Conversation.State())
}

type recordingChat struct {
	mu      sync.Mutex
	params  []ChatParams
	release chan struct{}
	started chan struct{}
	reply   string
}

func (r *recordingChat) Chat(ctx context.Context, p ChatParams) (string, error) {
	r.mu.Lock()
	r.params = append(r.params, p)
	r.mu.Unlock()
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.release != nil {
		<-r.release
	}
	return r.reply, nil
}

func TestConversationSerialisesHistory(t *testing.T) {
	chat := &recordingChat{reply: "ok"}
	conv := NewConversation(chat, NewRegistry(), NewDocumentSelection())
	ctx := context.Background()

	conv.Send(ctx, "first")
	conv.Send(ctx, "second")

	require.Len(t, chat.params, 2)
	assert.Equal(t, []HistoryEntry{{Role: "user", Content: "first"}}, chat.params[0].ConversationHistory)
	assert.Equal(t, []HistoryEntry{
		{Role: "user", Content: "first"},
		{Role: "assistant", Content: "ok"},
		{Role: "user", Content: "second"},
	}, chat.params[1].ConversationHistory)
	assert.Equal(t, DefaultCourses[0].Name, chat.params[1].CourseName)
	assert.Equal(t, []string{}, chat.params[1].DocumentFilenames)
}

func TestConversationDiscardsStaleReply(t *testing.T) {
	chat := &recordingChat{reply: "late answer", release: make(chan struct{}), started: make(chan struct{}, 1)}
	conv := NewConversation(chat, NewRegistry(), NewDocumentSelection())
	ctx := context.Background()

	done := make(chan bool)
	go func() { done <- conv.Send(ctx, "slow question") }()
	<-chat.started

	assert.Equal(t, StateAwaitingResponse, conv.State())
	assert.False(t, conv.Send(ctx, "impatient"), "a second send while awaiting is ignored")

	require.NoError(t, conv.SelectCourse("phys1"))
	close(chat.release)
	assert.True(t, <-done)

	msgs := conv.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Physics I")
	assert.Equal(t, StateIdle, conv.State())
}

func TestConversationIDsStrictlyIncrease(t *testing.T) {
	frozen := time.UnixMilli(1_700_000_000_000)
	chat := &recordingChat{reply: "ok"}
	conv := NewConversation(chat, NewRegistry(), NewDocumentSelection(),
		withClock(func() time.Time { return frozen }))

	for i := 0; i < 3; i++ {
		conv.Send(context.Background(), "q")
	}
	require.NoError(t, conv.SelectCourse("cs1"))
	conv.Send(context.Background(), "q")

	var last int64
	for _, m := range conv.Messages() {
		assert.Greater(t, m.ID, last)
		last = m.ID
	}
	assert.Greater(t, last, frozen.UnixMilli())
}

type blockingGenerator struct {
	release chan struct{}
	started chan string
	calls   atomic.Int64
	fail    bool
}

func (g *blockingGenerator) run(kind string) (string, error) {
	g.calls.Add(1)
	if g.started != nil {
		g.started <- kind
	}
	if g.release != nil {
		<-g.release
	}
	if g.fail {
		return "", errors.New("boom")
	}
	return kind + " result", nil
}

func (g *blockingGenerator) StudyGuide(context.Context, GenerateParams) (string, error) {
	return g.run("guide")
}

func (g *blockingGenerator) PracticeExam(context.Context, GenerateParams) (string, error) {
	return g.run("exam")
}

func TestGenerationSlotsAreIndependent(t *testing.T) {
	g := &blockingGenerator{release: make(chan struct{}), started: make(chan string, 2)}
	gen := NewGeneration(g)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); gen.StudyGuide.Submit(ctx, GenerateParams{CourseName: "Calc"}) }()
	<-g.started
	go func() { defer wg.Done(); gen.PracticeExam.Submit(ctx, GenerateParams{CourseName: "Calc"}) }()
	<-g.started

	assert.True(t, gen.StudyGuide.Loading())
	assert.True(t, gen.PracticeExam.Loading())
	assert.False(t, gen.StudyGuide.Submit(ctx, GenerateParams{CourseName: "Calc"}))

	close(g.release)
	wg.Wait()

	assert.EqualValues(t, 2, g.calls.Load())
	assert.Equal(t, "guide result", gen.StudyGuide.Result())
	assert.Equal(t, "exam result", gen.PracticeExam.Result())
	assert.False(t, gen.StudyGuide.Loading())
}

func TestGenerationFailure(t *testing.T) {
	gen := NewGeneration(&blockingGenerator{fail: true})
	assert.True(t, gen.PracticeExam.Submit(context.Background(), GenerateParams{}))
	assert.Equal(t, GenerationFailed, gen.PracticeExam.Result())
	assert.Empty(t, gen.StudyGuide.Result())
}

func TestGenerationOverHTTP(t *testing.T) {
	b := newBackend(t)
	c := b.client(t)

	c.Generation.StudyGuide.Submit(context.Background(), c.GenerateParams("limits"))
	assert.Equal(t, "Try factoring first.", c.Generation.StudyGuide.Result())

	b.provider.mu.Lock()
	b.provider.err = errors.New("down")
	b.provider.mu.Unlock()
	c.Generation.PracticeExam.Submit(context.Background(), c.GenerateParams(""))
	assert.Equal(t, GenerationFailed, c.Generation.PracticeExam.Result())
}

func TestWeeklyReviewRender(t *testing.T) {
	tests := []struct {
		name   string
		review WeeklyReview
		want   string
	}{
		{"prompts hide message", WeeklyReview{ReviewPrompts: []string{"a", "b"}, Message: "m"}, "1. a\n2. b"},
		{"prompts then full text", WeeklyReview{ReviewPrompts: []string{"a"}, FullText: "full"}, "1. a\n\nfull"},
		{"message without prompts", WeeklyReview{Message: "nothing yet"}, "nothing yet"},
		{"full text and message", WeeklyReview{FullText: "full", Message: "m"}, "full\n\nm"},
		{"empty", WeeklyReview{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.review.Render())
		})
	}
}

func TestDeleteMistakeRemovesOnlyThatID(t *testing.T) {
	b := newBackend(t)
	c := b.client(t)
	ctx := context.Background()

	for _, q := range []string{"q1", "q2", "q3"} {
		body, _ := json.Marshal(map[string]string{"user_identifier": c.UserIdentifier, "course": "Calculus I", "question": q})
		resp, err := http.Post(b.server.URL+"/api/mistakes", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	list, err := c.Learning.ListMistakes(ctx, "calculus")
	require.NoError(t, err)
	require.Len(t, list, 3)

	target := list[1].ID
	require.NoError(t, c.Learning.DeleteMistake(ctx, target))

	mirrored := c.Learning.Mistakes()
	require.Len(t, mirrored, 2)
	assert.Equal(t, []int64{list[0].ID, list[2].ID}, []int64{mirrored[0].ID, mirrored[1].ID})

	err = c.Learning.DeleteMistake(ctx, target)
	assert.True(t, IsKind(err, NonSuccessStatus))
	assert.Len(t, c.Learning.Mistakes(), 2)
}

func TestStudyPlanRoundTrip(t *testing.T) {
	b := newBackend(t)
	c := b.client(t)
	ctx := context.Background()

	plan, err := c.Learning.GetStudyPlan(ctx)
	require.NoError(t, err)
	assert.Nil(t, plan)

	require.NoError(t, c.Learning.SaveStudyPlan(ctx, StudyPlanFromEditor("review {chapter 3")))
	plan, err = c.Learning.GetStudyPlan(ctx)
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, TextPlan("review {chapter 3"), *plan)

	obj := `{"week":1,"topics":["limits","derivatives"]}`
	edited := StudyPlanFromEditor(obj)
	require.Equal(t, PlanJSON, edited.Kind)
	require.NoError(t, c.Learning.SaveStudyPlan(ctx, edited))
	plan, err = c.Learning.GetStudyPlan(ctx)
	require.NoError(t, err)
	require.Equal(t, PlanJSON, plan.Kind)
	assert.JSONEq(t, obj, string(plan.Object))

	require.NoError(t, c.Learning.SaveStudyPlan(ctx, StudyPlanFromEditor(`[1,2]`)))
	plan, err = c.Learning.GetStudyPlan(ctx)
	require.NoError(t, err)
	require.Equal(t, PlanJSON, plan.Kind)
	assert.JSONEq(t, `[1,2]`, string(plan.Object))
	assert.Equal(t, "[\n  1,\n  2\n]", plan.EditorText())
}

func TestStudyPlanFromEditor(t *testing.T) {
	assert.Equal(t, PlanText, StudyPlanFromEditor("just study").Kind)
	assert.Equal(t, PlanJSON, StudyPlanFromEditor(`[1, 2]`).Kind)
	assert.Equal(t, PlanText, StudyPlanFromEditor(`[1, 2`).Kind)
	assert.Equal(t, PlanText, StudyPlanFromEditor(`42`).Kind)
	assert.Equal(t, PlanText, StudyPlanFromEditor(`"quoted"`).Kind)
	assert.Equal(t, PlanJSON, StudyPlanFromEditor(` {"a": 1} `).Kind)

	raw, err := TextPlan("x").wire()
	require.NoError(t, err)
	assert.JSONEq(t, `{"notes":"x"}`, string(raw))
}

func TestUploadAllThenList(t *testing.T) {
	b := newBackend(t)
	c := b.client(t)
	ctx := context.Background()

	dir := t.TempDir()
	var paths []string
	for i := 0; i < 5; i++ {
		p := filepath.Join(dir, "notes.txt")
		if i > 0 {
			p = filepath.Join(dir, fmt.Sprintf("sub%d", i), "notes.txt")
			require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		}
		require.NoError(t, os.WriteFile(p, []byte(fmt.Sprintf("chapter %d", i)), 0o644))
		paths = append(paths, p)
	}

	results := c.Files.UploadAll(ctx, paths)
	require.Len(t, results, len(paths))
	names := map[string]bool{}
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, paths[i], r.Path)
		assert.Equal(t, "notes.txt", r.File.OriginalName)
		names[r.File.Filename] = true
	}
	assert.Len(t, names, len(paths))

	list, err := c.Files.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, len(paths))

	require.NoError(t, c.Files.Delete(ctx, results[0].File.Filename))
	err = c.Files.Delete(ctx, results[0].File.Filename)
	assert.True(t, IsKind(err, NonSuccessStatus))

	_, err = c.Files.Upload(ctx, filepath.Join(dir, "missing.pdf"))
	assert.True(t, IsKind(err, ValidationFailure))
}

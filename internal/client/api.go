// Package client models the learning helper's front end: the login gate, the
// course and document selection, the per-course conversation and the
// generation, learning and file panels, all backed by the HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = 60 * time.Second

type ErrorKind int

const (
	NetworkFailure ErrorKind = iota
	NonSuccessStatus
	ValidationFailure
)

func (k ErrorKind) String() string {
	switch k {
	case NetworkFailure:
		return "network failure"
	case NonSuccessStatus:
		return "non-success status"
	case ValidationFailure:
		return "validation failure"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a client *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}

func validationError(msg string, cause error) error {
	return &Error{Kind: ValidationFailure, Message: msg, Err: cause}
}

// API is a thin JSON client for the backend routes.
type API struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*API)

func WithHTTPClient(hc *http.Client) Option {
	return func(a *API) { a.httpClient = hc }
}

func NewAPI(baseURL string, opts ...Option) *API {
	a := &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SetToken sets the bearer token sent with every request. An empty token
// removes the header.
func (a *API) SetToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

func (a *API) authorize(req *http.Request) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
}

func (a *API) endpoint(path string, query url.Values) string {
	u := a.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (a *API) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return validationError("failed to encode request", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.endpoint(path, query), body)
	if err != nil {
		return &Error{Kind: NetworkFailure, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return a.send(req, out)
}

func (a *API) send(req *http.Request, out any) error {
	a.authorize(req)
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: NetworkFailure, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: NetworkFailure, Err: fmt.Errorf("failed to read response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		return &Error{Kind: NonSuccessStatus, Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &Error{Kind: NetworkFailure, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (a *API) Health(ctx context.Context) (status string, err error) {
	var resp struct {
		Status string `json:"status"`
	}
	err = a.doJSON(ctx, http.MethodGet, "/api/health", nil, nil, &resp)
	return resp.Status, err
}

type loginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

func (a *API) login(ctx context.Context, email, password string) (*loginResponse, error) {
	var resp loginResponse
	err := a.doJSON(ctx, http.MethodPost, "/api/login", nil,
		map[string]string{"email": email, "password": password}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatParams struct {
	Message             string         `json:"message"`
	CourseName          string         `json:"course_name"`
	ConversationHistory []HistoryEntry `json:"conversation_history"`
	DocumentFilenames   []string       `json:"document_filenames"`
	UserIdentifier      string         `json:"user_identifier,omitempty"`
}

func (a *API) Chat(ctx context.Context, p ChatParams) (string, error) {
	var resp struct {
		Response *string `json:"response"`
	}
	if err := a.doJSON(ctx, http.MethodPost, "/api/chat", nil, p, &resp); err != nil {
		return "", err
	}
	if resp.Response == nil {
		return "", &Error{Kind: NetworkFailure, Err: errors.New("response field missing")}
	}
	return *resp.Response, nil
}

type GenerateParams struct {
	CourseName        string   `json:"course_name"`
	Topic             string   `json:"topic,omitempty"`
	DocumentFilenames []string `json:"document_filenames"`
}

func (a *API) StudyGuide(ctx context.Context, p GenerateParams) (string, error) {
	var resp struct {
		StudyGuide string `json:"study_guide"`
	}
	err := a.doJSON(ctx, http.MethodPost, "/api/generate-study-guide", nil, p, &resp)
	return resp.StudyGuide, err
}

func (a *API) PracticeExam(ctx context.Context, p GenerateParams) (string, error) {
	var resp struct {
		PracticeExam string `json:"practice_exam"`
	}
	err := a.doJSON(ctx, http.MethodPost, "/api/generate-practice-exam", nil, p, &resp)
	return resp.PracticeExam, err
}

func (a *API) WeeklyReview(ctx context.Context, userIdentifier, course string) (*WeeklyReview, error) {
	in := map[string]string{"user_identifier": userIdentifier}
	if course != "" {
		in["course"] = course
	}
	var review WeeklyReview
	if err := a.doJSON(ctx, http.MethodPost, "/api/weekly-review", nil, in, &review); err != nil {
		return nil, err
	}
	return &review, nil
}

func (a *API) ListMistakes(ctx context.Context, userIdentifier, course string) ([]Mistake, error) {
	q := url.Values{"user_identifier": {userIdentifier}}
	if course != "" {
		q.Set("course", course)
	}
	var resp struct {
		Mistakes []Mistake `json:"mistakes"`
	}
	err := a.doJSON(ctx, http.MethodGet, "/api/mistakes", q, nil, &resp)
	return resp.Mistakes, err
}

func (a *API) DeleteMistake(ctx context.Context, userIdentifier string, id int64) error {
	q := url.Values{"user_identifier": {userIdentifier}}
	return a.doJSON(ctx, http.MethodDelete, "/api/mistakes/"+strconv.FormatInt(id, 10), q, nil, nil)
}

func (a *API) GetStudyPlan(ctx context.Context, userIdentifier string) (json.RawMessage, error) {
	var resp struct {
		Plan json.RawMessage `json:"plan"`
	}
	err := a.doJSON(ctx, http.MethodGet, "/api/study-plan", url.Values{"user_identifier": {userIdentifier}}, nil, &resp)
	return resp.Plan, err
}

func (a *API) SaveStudyPlan(ctx context.Context, userIdentifier string, plan json.RawMessage) error {
	in := struct {
		UserIdentifier string          `json:"user_identifier"`
		Plan           json.RawMessage `json:"plan"`
	}{userIdentifier, plan}
	return a.doJSON(ctx, http.MethodPost, "/api/study-plan", nil, in, nil)
}

func (a *API) UploadFile(ctx context.Context, name string, r io.Reader) (*UploadedFile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return nil, validationError("failed to build upload", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, validationError("failed to read "+name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, validationError("failed to build upload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint("/api/upload", nil), &buf)
	if err != nil {
		return nil, &Error{Kind: NetworkFailure, Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var uploaded UploadedFile
	if err := a.send(req, &uploaded); err != nil {
		return nil, err
	}
	return &uploaded, nil
}

func (a *API) ListFiles(ctx context.Context) ([]FileInfo, error) {
	var resp struct {
		Files []FileInfo `json:"files"`
	}
	err := a.doJSON(ctx, http.MethodGet, "/api/files", nil, nil, &resp)
	return resp.Files, err
}

func (a *API) DeleteFile(ctx context.Context, filename string) error {
	return a.doJSON(ctx, http.MethodDelete, "/api/files/"+url.PathEscape(filename), nil, nil, nil)
}

// Package wolfram queries the Wolfram Alpha Full Results API for worked math
// solutions.
package wolfram

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "http://api.wolframalpha.com/v2/query"
	requestTimeout = 15 * time.Second
	// Bounds the whole podstate fallback chain so a lookup finishes well
	// inside the server's write timeout.
	lookupTimeout = 60 * time.Second

	// Step-by-step output may require a Wolfram Alpha Pro app id.
	podstateSteps = "Result__Step-by-step+solution"
)

var podstateAlternatives = []string{
	"Result__Show+steps",
	"IndefiniteIntegral__Step-by-step+solution",
	"Derivative__Step-by-step+solution",
}

type Client struct {
	appID         string
	baseURL       string
	httpClient    *http.Client
	lookupTimeout time.Duration
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLookupTimeout caps the total time FetchWithSteps may spend across all
// of its requests.
func WithLookupTimeout(d time.Duration) Option {
	return func(c *Client) { c.lookupTimeout = d }
}

func NewClient(appID string, opts ...Option) *Client {
	c := &Client{
		appID:         appID,
		baseURL:       defaultBaseURL,
		httpClient:    &http.Client{Timeout: requestTimeout},
		lookupTimeout: lookupTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether an app id is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.appID != ""
}

type queryResponse struct {
	QueryResult QueryResult `json:"queryresult"`
}

type QueryResult struct {
	Success bool            `json:"success"`
	Error   json.RawMessage `json:"error"`
	Pods    []rawPod        `json:"pods"`
}

type rawPod struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Subpods []struct {
		Plaintext string `json:"plaintext"`
	} `json:"subpods"`
}

// Pod is a titled block of plaintext from a Wolfram Alpha result.
type Pod struct {
	ID      string `json:"id,omitempty"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Solution is the structured answer handed to the tutor model.
type Solution struct {
	Question            string `json:"question"`
	InputInterpretation string `json:"input_interpretation"`
	Answer              string `json:"answer"`
	Steps               string `json:"steps"`
	HowToSolve          string `json:"how_to_solve"`
	AllPods             []Pod  `json:"all_pods"`
}

func (r QueryResult) errorMessage() string {
	var detail struct {
		Msg string `json:"msg"`
	}
	if len(r.Error) > 0 && json.Unmarshal(r.Error, &detail) == nil && detail.Msg != "" {
		return detail.Msg
	}
	return "Unknown error"
}

// Query issues a single Full Results API request. An empty podstate asks for
// the default pods.
func (c *Client) Query(ctx context.Context, question, podstate string) (*QueryResult, error) {
	params := url.Values{}
	params.Set("appid", c.appID)
	params.Set("input", question)
	params.Set("output", "json")
	params.Set("format", "plaintext")
	if podstate != "" {
		params.Set("podstate", podstate)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build wolfram request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wolfram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("wolfram returned status %d", resp.StatusCode)
	}

	var decoded queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode wolfram response: %w", err)
	}
	return &decoded.QueryResult, nil
}

// extractPods keeps pods that carry at least one non-empty plaintext subpod.
func extractPods(r *QueryResult) []Pod {
	if r == nil || !r.Success {
		return nil
	}
	var pods []Pod
	for _, p := range r.Pods {
		var parts []string
		for _, sp := range p.Subpods {
			if text := strings.TrimSpace(sp.Plaintext); text != "" {
				parts = append(parts, text)
			}
		}
		if len(parts) > 0 {
			pods = append(pods, Pod{ID: p.ID, Title: p.Title, Content: strings.Join(parts, "\n")})
		}
	}
	return pods
}

// FetchWithSteps tries the step-by-step podstates first and falls back to a
// plain query. The returned Solution is never nil; when every attempt fails
// it carries only the built-in explanation and err is set.
func (c *Client) FetchWithSteps(ctx context.Context, question string) (*Solution, error) {
	howTo := WorkedSolution(question)

	if c.lookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.lookupTimeout)
		defer cancel()
	}

	for _, podstate := range append([]string{podstateSteps}, podstateAlternatives...) {
		if ctx.Err() != nil {
			break
		}
		result, err := c.Query(ctx, question, podstate)
		if err != nil {
			log.Printf("wolfram: podstate %s failed for %q: %v", podstate, question, err)
			continue
		}
		if !result.Success {
			log.Printf("wolfram: podstate %s unsuccessful for %q: %s", podstate, question, result.errorMessage())
			continue
		}

		pods := extractPods(result)
		var steps strings.Builder
		var answer, interpretation string
		for _, pod := range pods {
			id, title := strings.ToLower(pod.ID), strings.ToLower(pod.Title)
			switch {
			case strings.Contains(title, "step") || strings.Contains(id, "step"):
				steps.WriteString(pod.Content)
				steps.WriteString("\n\n")
			case strings.Contains(id, "result") || strings.Contains(title, "result"):
				answer = pod.Content
			case strings.Contains(id, "input"):
				interpretation = pod.Content
			}
		}

		wolframSteps := strings.TrimSpace(steps.String())
		if wolframSteps == "" {
			wolframSteps = formatPodsAsSteps(pods)
		}
		if answer == "" && len(pods) > 0 {
			answer = pods[0].Content
		}
		if interpretation == "" {
			interpretation = question
		}

		return &Solution{
			Question:            question,
			InputInterpretation: interpretation,
			Answer:              answer,
			Steps:               firstNonEmpty(howTo, wolframSteps),
			HowToSolve:          howTo,
			AllPods:             titledPods(pods),
		}, nil
	}

	result, err := c.Query(ctx, question, "")
	if err != nil {
		return &Solution{Question: question, Steps: howTo, HowToSolve: howTo, AllPods: []Pod{}}, err
	}

	pods := extractPods(result)
	var answer string
	for _, pod := range pods {
		if strings.Contains(strings.ToLower(pod.ID), "result") {
			answer = pod.Content
			break
		}
	}
	return &Solution{
		Question:   question,
		Answer:     answer,
		Steps:      firstNonEmpty(howTo, formatPodsAsSteps(pods)),
		HowToSolve: howTo,
		AllPods:    titledPods(pods),
	}, nil
}

func formatPodsAsSteps(pods []Pod) string {
	var lines []string
	for i, pod := range pods {
		if pod.Content != "" {
			lines = append(lines, fmt.Sprintf("Step %d (%s):\n%s", i+1, pod.Title, pod.Content))
		}
	}
	return strings.Join(lines, "\n\n")
}

func titledPods(pods []Pod) []Pod {
	out := make([]Pod, 0, len(pods))
	for _, p := range pods {
		out = append(out, Pod{Title: p.Title, Content: p.Content})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// FormatChatResponse renders a solution as chat text: the steps, then the
// final answer unless the steps already contain it.
func FormatChatResponse(s *Solution) string {
	steps := firstNonEmpty(s.HowToSolve, s.Steps)
	var parts []string
	if steps != "" {
		parts = append(parts, steps)
	}
	if s.Answer != "" && !strings.Contains(steps, s.Answer) {
		parts = append(parts, "\nFinal answer: "+s.Answer)
	}
	if len(parts) == 0 {
		return firstNonEmpty(s.Answer, "No result.")
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash-latest"

type GeminiProvider struct {
	client    *genai.Client
	modelName string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiProvider{client: client, modelName: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Close() error {
	if p.client == nil {
		return nil
	}
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("error closing GenAI client: %w", err)
	}
	log.Println("GenAI client closed.")
	return nil
}

// session prepares a chat session whose history is everything but the final
// user turn, which is returned separately for SendMessage.
func (p *GeminiProvider) session(req Request) (*genai.ChatSession, []genai.Part, error) {
	model := p.client.GenerativeModel(p.modelName)
	model.SetTemperature(float32(req.temperature()))
	model.SetMaxOutputTokens(int32(req.maxTokens()))
	model.SetTopP(float32(defaultTopP))

	system, contents := toGeminiContents(req.Messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if len(req.Tools) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: toFunctionDeclarations(req.Tools)}}
	}

	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("prompt history is empty for chat completion")
	}
	last := contents[len(contents)-1]
	if last.Role != "user" {
		return nil, nil, fmt.Errorf("last message in history is not from 'user', cannot proceed with chat completion")
	}

	cs := model.StartChat()
	cs.History = contents[:len(contents)-1]
	return cs, last.Parts, nil
}

func (p *GeminiProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	cs, parts, err := p.session(req)
	if err != nil {
		return nil, err
	}
	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}
	return fromGeminiResponse(resp)
}

func (p *GeminiProvider) Stream(ctx context.Context, req Request, onChunk func(string) error) error {
	cs, parts, err := p.session(req)
	if err != nil {
		return err
	}
	iter := cs.SendMessageStream(ctx, parts...)
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gemini stream failed: %w", err)
		}
		out, err := fromGeminiResponse(resp)
		if err != nil {
			continue
		}
		if out.Content != "" {
			if err := onChunk(out.Content); err != nil {
				return err
			}
		}
	}
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) (*Response, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, ErrEmptyResponse
	}

	cand := resp.Candidates[0]
	out := &Response{FinishReason: strings.ToLower(strings.TrimPrefix(cand.FinishReason.String(), "FinishReason"))}
	var text strings.Builder
	for i, part := range cand.Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			text.WriteString(string(v))
		case genai.FunctionCall:
			args, err := json.Marshal(v.Args)
			if err != nil {
				return nil, fmt.Errorf("failed to encode function call args: %w", err)
			}
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:        fmt.Sprintf("call_%d_%s", i, v.Name),
				Name:      v.Name,
				Arguments: string(args),
			})
		default:
			log.Printf("Gemini response part was not text: %T", part)
		}
	}
	out.Content = text.String()
	return out, nil
}

// toGeminiContents splits system prompts out (Gemini takes them as a system
// instruction) and maps the rest onto user/model turns. Tool results become
// FunctionResponse parts on a user turn.
func toGeminiContents(msgs []Message) (string, []*genai.Content) {
	var system []string
	var contents []*genai.Content
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			c := &genai.Content{Role: "model"}
			if m.Content != "" {
				c.Parts = append(c.Parts, genai.Text(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				_ = json.Unmarshal([]byte(tc.Arguments), &args)
				c.Parts = append(c.Parts, genai.FunctionCall{Name: tc.Name, Args: args})
			}
			if len(c.Parts) > 0 {
				contents = append(contents, c)
			}
		case RoleTool:
			result := map[string]any{}
			if err := json.Unmarshal([]byte(m.Content), &result); err != nil {
				result = map[string]any{"result": m.Content}
			}
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []genai.Part{genai.FunctionResponse{Name: m.Name, Response: result}},
			})
		default:
			contents = append(contents, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(m.Content)}})
		}
	}
	return strings.Join(system, "\n\n"), contents
}

func toFunctionDeclarations(tools []Tool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  toGeminiSchema(t.Parameters),
		})
	}
	return decls
}

// toGeminiSchema converts the subset of JSON schema used by our tools.
func toGeminiSchema(s map[string]any) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{}
	switch s["type"] {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}
	if d, ok := s["description"].(string); ok {
		out.Description = d
	}
	if props, ok := s["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				out.Properties[name] = toGeminiSchema(sub)
			}
		}
	}
	switch req := s["required"].(type) {
	case []string:
		out.Required = req
	case []any:
		for _, r := range req {
			if name, ok := r.(string); ok {
				out.Required = append(out.Required, name)
			}
		}
	}
	if items, ok := s["items"].(map[string]any); ok {
		out.Items = toGeminiSchema(items)
	}
	return out
}

package llm

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

const DefaultAzureAPIVersion = "2024-10-21"

type AzureProvider struct {
	client     openai.Client
	deployment string
}

// AzureEndpoint is a parsed Azure OpenAI endpoint.
type AzureEndpoint struct {
	BaseURL    string
	Deployment string
	APIVersion string
}

// ParseAzureEndpoint accepts either a resource URL
// (https://name.openai.azure.com) or a full chat completions URL
// (.../openai/deployments/{name}/chat/completions?api-version=...). Values
// found in the URL win over the fallbacks.
func ParseAzureEndpoint(raw, deployment, apiVersion string) (AzureEndpoint, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return AzureEndpoint{}, fmt.Errorf("invalid Azure endpoint %q", raw)
	}

	ep := AzureEndpoint{Deployment: deployment, APIVersion: apiVersion}
	if v := u.Query().Get("api-version"); v != "" {
		ep.APIVersion = v
	}

	path := u.Path
	if idx := strings.Index(path, "/openai/deployments/"); idx >= 0 {
		rest := strings.TrimPrefix(path[idx:], "/openai/deployments/")
		if name, _, _ := strings.Cut(rest, "/"); name != "" {
			ep.Deployment = name
		}
		path = path[:idx]
	}
	path = strings.TrimSuffix(strings.TrimSuffix(path, "/"), "/openai")
	ep.BaseURL = u.Scheme + "://" + u.Host + strings.TrimSuffix(path, "/")

	if ep.APIVersion == "" {
		ep.APIVersion = DefaultAzureAPIVersion
	}
	if ep.Deployment == "" {
		return AzureEndpoint{}, fmt.Errorf("no Azure deployment in endpoint %q and AZURE_DEPLOYMENT is empty", raw)
	}
	return ep, nil
}

func NewAzureProvider(endpoint, apiKey, deployment, apiVersion string, opts ...option.RequestOption) (*AzureProvider, error) {
	ep, err := ParseAzureEndpoint(endpoint, deployment, apiVersion)
	if err != nil {
		return nil, err
	}
	reqOpts := append([]option.RequestOption{
		azure.WithEndpoint(ep.BaseURL, ep.APIVersion),
		azure.WithAPIKey(apiKey),
	}, opts...)

	return &AzureProvider{
		client:     openai.NewClient(reqOpts...),
		deployment: ep.Deployment,
	}, nil
}

func (p *AzureProvider) Name() string { return "azure" }

func (p *AzureProvider) Close() error { return nil }

func (p *AzureProvider) buildParams(req Request) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:       p.deployment,
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: openai.Float(req.temperature()),
		MaxTokens:   openai.Int(int64(req.maxTokens())),
		TopP:        openai.Float(defaultTopP),
	}
	for _, t := range req.Tools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  openai.FunctionParameters(t.Parameters),
			},
		})
	}
	return params
}

func (p *AzureProvider) Complete(ctx context.Context, req Request) (*Response, error) {
	completion, err := p.client.Chat.Completions.New(ctx, p.buildParams(req))
	if err != nil {
		return nil, fmt.Errorf("azure chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	choice := completion.Choices[0]
	resp := &Response{
		Content:      choice.Message.Content,
		FinishReason: choice.FinishReason,
	}
	for _, tc := range choice.Message.ToolCalls {
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return resp, nil
}

func (p *AzureProvider) Stream(ctx context.Context, req Request, onChunk func(string) error) error {
	stream := p.client.Chat.Completions.NewStreaming(ctx, p.buildParams(req))
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			if err := onChunk(delta); err != nil {
				return err
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("azure stream failed: %w", err)
	}
	return nil
}

func toOpenAIMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			asst := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				asst.Content.OfString = openai.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		case RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Commands the agent may pick
const (
	CommandDatasetStatus = "GetDatasetStatus"
	CommandRefresh       = "RefreshDatasets"
	CommandGeneral       = "GeneralQuery"
)

// AgentResponse defines the structured output from the OpenAI agent.
type AgentResponse struct {
	CommandName string `json:"command_name" jsonschema_description:"The command to execute: GetDatasetStatus, RefreshDatasets or GeneralQuery"`
	Dataset     string `json:"dataset" jsonschema_description:"The dataset name from the supported list, if applicable"`
	UserMessage string `json:"user_message" jsonschema_description:"A short message to show back to the user"`
}

// OpenAIService defines the interface for interacting with the OpenAI agent.
type OpenAIService interface {
	InterpretUserQuery(ctx context.Context, userMessage string, datasets []string) (*AgentResponse, error)
}

// openAIServiceImpl implements the OpenAIService interface.
type openAIServiceImpl struct {
	client openai.Client
	schema interface{}
	logger *slog.Logger
}

// GenerateSchema generates a JSON schema for a given type.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// NewOpenAIService creates and initializes a new OpenAIService.
func NewOpenAIService(apiKey string, logger *slog.Logger) (OpenAIService, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}
	return &openAIServiceImpl{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		schema: GenerateSchema[AgentResponse](),
		logger: logger,
	}, nil
}

// BuildSystemPrompt renders the instructions given to the agent
func BuildSystemPrompt(datasets []string) string {
	return fmt.Sprintf(`You are the assistant of a small epidemiological data pipeline for New South Wales.
The pipeline caches these datasets: %s.

Behavior:
1. If the user asks how fresh, how large or how recent one of the datasets is:
   - command_name = "%s"
   - dataset = the matching name from the list, or "" if none matches.
2. If the user asks to update, refresh or re-download the data:
   - command_name = "%s", dataset = "".
3. Anything else:
   - command_name = "%s", dataset = "", user_message = a brief answer.
Reply in the language of the user. Output strictly in JSON.`,
		strings.Join(datasets, ", "), CommandDatasetStatus, CommandRefresh, CommandGeneral)
}

// InterpretUserQuery sends a message to the OpenAI agent and returns the structured response.
func (s *openAIServiceImpl) InterpretUserQuery(ctx context.Context, userMessage string, datasets []string) (*AgentResponse, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "agent_response",
		Description: openai.String("Structured response containing command, dataset name, and user message"),
		Schema:      s.schema,
		Strict:      openai.Bool(true),
	}

	respFormat := openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
	}

	chat, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(BuildSystemPrompt(datasets)),
			openai.UserMessage(userMessage),
		},
		ResponseFormat: respFormat,
		Model:          openai.ChatModelGPT4o,
	})
	if err != nil {
		return nil, fmt.Errorf("error calling OpenAI API: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, errors.New("received empty response from OpenAI")
	}

	return ParseAgentResponse(chat.Choices[0].Message.Content, s.logger)
}

// ParseAgentResponse decodes the JSON content of a completion
func ParseAgentResponse(content string, logger *slog.Logger) (*AgentResponse, error) {
	var agentResp AgentResponse
	if err := json.Unmarshal([]byte(content), &agentResp); err != nil {
		logger.Error("failed to unmarshal OpenAI response", "err", err, "raw", content)
		return nil, fmt.Errorf("error unmarshalling OpenAI response: %w", err)
	}
	return &agentResp, nil
}

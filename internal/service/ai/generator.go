package ai

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/lucasmaia/atende/internal/config"
	"github.com/lucasmaia/atende/internal/model/order"
)

// Generator turns a conversation transcript into the agent's next reply.
type Generator struct {
	chatModel model.ChatModel
	cfg       config.AIConfig
}

// NewGenerator builds a Generator backed by the configured Ark chat model.
func NewGenerator(ctx context.Context, cfg config.AIConfig) (*Generator, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	return &Generator{chatModel: chatModel, cfg: cfg}, nil
}

// Complete replays the transcript verbatim and returns the model's next
// message. An empty result is a normal outcome, surfaced as ("", nil); the
// caller decides what stands in for the agent.
func (g *Generator) Complete(ctx context.Context, transcript []order.Turn) (string, error) {
	resp, err := g.chatModel.Generate(ctx, buildMessages(transcript))
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}
	if resp == nil {
		return "", nil
	}

	log.Printf("[ai] generated reply, length=%d", len(resp.Content))
	return resp.Content, nil
}

// buildMessages maps transcript roles onto the model's role vocabulary.
func buildMessages(transcript []order.Turn) []*schema.Message {
	messages := make([]*schema.Message, 0, len(transcript))
	for _, turn := range transcript {
		switch turn.Role {
		case order.RoleSystem:
			messages = append(messages, schema.SystemMessage(turn.Text))
		case order.RoleUser:
			messages = append(messages, schema.UserMessage(turn.Text))
		case order.RoleAgent:
			messages = append(messages, schema.AssistantMessage(turn.Text, nil))
		}
	}
	return messages
}

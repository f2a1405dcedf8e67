package routing

import (
	"testing"

	"github.com/hyperdag/routing-plane/models"
	"github.com/stretchr/testify/assert"
)

func TestClassifyTask(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    models.TaskType
	}{
		{"code keyword", "write a function to sort a list", models.TaskTypeCode},
		{"debug keyword", "help me debug this crash", models.TaskTypeCode},
		{"reasoning keyword", "analyze the tradeoffs between these designs", models.TaskTypeReasoning},
		{"prove keyword", "prove that the sum converges", models.TaskTypeReasoning},
		{"vision keyword", "describe what is in this image", models.TaskTypeVision},
		{"screenshot keyword", "what does the screenshot show", models.TaskTypeVision},
		{"plain question", "what is the capital of france", models.TaskTypeLLM},
		{"empty content", "", models.TaskTypeLLM},
		{"case insensitive", "DEBUG the FUNCTION", models.TaskTypeCode},
		{"word boundary", "the bartender decoded nothing", models.TaskTypeLLM},
		{"code beats vision on order", "write code to parse an image", models.TaskTypeCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyTask(tt.content))
		})
	}
}

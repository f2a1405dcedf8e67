package routing

import (
	"strings"
	"unicode"

	"github.com/hyperdag/routing-plane/models"
)

// taskTriggers maps task types to the keywords that indicate them. Matching
// is word-boundary aware and case-insensitive; first match in declaration
// order wins.
var taskTriggers = []struct {
	task     models.TaskType
	triggers []string
}{
	{models.TaskTypeCode, []string{"code", "function", "debug", "compile", "refactor", "implement", "bug"}},
	{models.TaskTypeReasoning, []string{"analyze", "analyse", "reason", "deduce", "prove", "evaluate", "compare"}},
	{models.TaskTypeVision, []string{"image", "visual", "picture", "photo", "diagram", "screenshot"}},
}

// ClassifyTask derives a task type from request content using a
// deterministic keyword heuristic. Content with no trigger words is plain
// llm work.
func ClassifyTask(content string) models.TaskType {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	}) {
		words[w] = true
	}

	for _, entry := range taskTriggers {
		for _, trigger := range entry.triggers {
			if words[trigger] {
				return entry.task
			}
		}
	}
	return models.TaskTypeLLM
}

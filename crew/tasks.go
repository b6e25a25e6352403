package crew

import (
	"fmt"
	"strings"

	internalutil "github.com/hupe1980/researchcrew/internal/util"
)

// Session state keys holding each task's output.
const (
	KeyTopic    = "topic"
	KeyPlan     = "plan"
	KeySources  = "sources"
	KeyAnalysis = "analysis"
	KeyReport   = "report"
)

// Task is one unit of work bound to a crew agent.
type Task struct {
	Name           string
	Description    string
	ExpectedOutput string
	Agent          *AgentSpec
	OutputKey      string
}

type taskTemplate struct {
	name        string
	description string
	expected    string
	outputKey   string
}

var researchTaskTemplates = []taskTemplate{
	{
		name: "planning",
		description: `Create a detailed research plan for the topic: {{.topic}}
Include:
1. Key aspects to investigate
2. Types of sources to look for
3. Analysis approach
4. Report structure`,
		expected:  "A comprehensive research plan with clear steps and structure",
		outputKey: KeyPlan,
	},
	{
		name: "search",
		description: `Find relevant sources and information about: {{.topic}}
Focus on:
1. Academic sources
2. Professional publications
3. Recent developments
4. Key statistics and data`,
		expected:  "A collection of relevant sources and key information",
		outputKey: KeySources,
	},
	{
		name: "analysis",
		description: `Analyze the information gathered about: {{.topic}}
Include:
1. Key findings
2. Patterns and trends
3. Supporting evidence
4. Potential implications`,
		expected:  "A detailed analysis of the gathered information",
		outputKey: KeyAnalysis,
	},
	{
		name: "writing",
		description: `Create a comprehensive research report about: {{.topic}}
Structure the report with:
1. Executive summary
2. Key findings
3. Analysis
4. Conclusions
5. Recommendations`,
		expected:  "A well-structured research report",
		outputKey: KeyReport,
	},
}

// CreateResearchTasks returns the planning, search, analysis and writing
// tasks for topic, bound to coordinator, searcher, analyst and writer.
func CreateResearchTasks(topic string, coordinator, searcher, analyst, writer *AgentSpec) ([]*Task, error) {
	agents := []*AgentSpec{coordinator, searcher, analyst, writer}
	state := map[string]any{KeyTopic: topic}

	tasks := make([]*Task, 0, len(researchTaskTemplates))
	for i, tt := range researchTaskTemplates {
		desc, err := internalutil.RenderTemplate(tt.description, state)
		if err != nil {
			return nil, fmt.Errorf("render %s task: %w", tt.name, err)
		}
		tasks = append(tasks, &Task{
			Name:           tt.name,
			Description:    desc,
			ExpectedOutput: tt.expected,
			Agent:          agents[i],
			OutputKey:      tt.outputKey,
		})
	}
	return tasks, nil
}

const contextSeparator = "\n\n----------\n\n"

// Prompt builds the user turn for the task from the outputs of earlier tasks.
func (t *Task) Prompt(previous []string) string {
	var b strings.Builder
	b.WriteString("Current Task: ")
	b.WriteString(t.Description)
	b.WriteString("\n\nThis is the expected criteria for your final answer: ")
	b.WriteString(t.ExpectedOutput)
	b.WriteString("\nYou MUST return the actual complete content as the final answer, not a summary.")

	var ctxParts []string
	for _, p := range previous {
		if strings.TrimSpace(p) != "" {
			ctxParts = append(ctxParts, p)
		}
	}
	if len(ctxParts) > 0 {
		b.WriteString("\n\nThis is the context you're working with:\n")
		b.WriteString(strings.Join(ctxParts, contextSeparator))
	}

	b.WriteString("\n\nBegin! Give your best final answer.")
	return b.String()
}

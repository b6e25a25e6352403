package crew

import (
	"fmt"
	"strings"

	"github.com/hupe1980/researchcrew/model"
)

// AgentSpec describes one crew member. It is immutable after construction.
type AgentSpec struct {
	Role      string
	Goal      string
	Backstory string
	LLM       model.Model
}

// Instruction returns the system prompt that puts the model in character.
func (a *AgentSpec) Instruction() string {
	return fmt.Sprintf("You are %s. %s\nYour personal goal is: %s", a.Role, a.Backstory, a.Goal)
}

func newAgent(role, goal, backstory string, llm model.Model) *AgentSpec {
	return &AgentSpec{
		Role:      role,
		Goal:      goal,
		Backstory: strings.Join(strings.Fields(backstory), " "),
		LLM:       llm,
	}
}

// NewResearchCoordinator returns the agent that plans the research.
func NewResearchCoordinator(llm model.Model) *AgentSpec {
	return newAgent(
		"Research Coordinator",
		"Plan and coordinate research tasks effectively",
		`You are an experienced research coordinator with expertise in
		planning and managing research projects. You excel at breaking down complex
		topics into manageable tasks.`,
		llm,
	)
}

// NewLiteratureSearcher returns the agent that collects sources.
func NewLiteratureSearcher(llm model.Model) *AgentSpec {
	return newAgent(
		"Literature Searcher",
		"Find relevant and reliable sources of information",
		`You are a skilled researcher with expertise in finding and
		evaluating academic and professional sources. You have a keen eye for
		credible information.`,
		llm,
	)
}

// NewInformationAnalyst returns the agent that analyzes the collected material.
func NewInformationAnalyst(llm model.Model) *AgentSpec {
	return newAgent(
		"Information Analyst",
		"Analyze and synthesize information effectively",
		`You are an expert analyst who excels at understanding complex
		information and identifying key insights. You can spot patterns and draw
		meaningful conclusions.`,
		llm,
	)
}

// NewContentWriter returns the agent that writes the final report.
func NewContentWriter(llm model.Model) *AgentSpec {
	return newAgent(
		"Content Writer",
		"Create clear and engaging research reports",
		`You are a professional writer with expertise in creating
		well-structured and engaging research reports. You excel at presenting
		complex information in a clear and accessible way.`,
		llm,
	)
}

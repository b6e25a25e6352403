// Package crew defines the research crew: four role-playing agents, the four
// topic-specific tasks they perform (plan, search, analyze, write) and the
// Crew that executes those tasks in order on top of the agent runtime.
//
//	c, err := crew.CreateResearchCrew("Impact of AI on Healthcare", llm)
//	if err != nil { ... }
//	res, err := c.Kickoff(ctx)
//	fmt.Println(res.Final)
package crew

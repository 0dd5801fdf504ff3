// Package flow provides the scripted fallback questions for each phase.
package flow

import "github.com/venturelaunch/angel/internal/models"

// phaseScripts holds the scripted question sequence per flow state, used when
// no upstream question source is configured or the source fails. The wording
// deliberately exercises the resolver's classification rules.
var phaseScripts = map[models.StateType][]string{
	models.StateIntake: {
		"Hi, I'm Angel! I'll guide you from idea to launch. To start: what kind of business are you dreaming about?",
		"What's your current work situation?",
		"How much time can you dedicate each week?",
		"How comfortable are you with these business skills?",
		"Do you have any initial funding available?",
		"Would you like Angel to:",
	},
	models.StatePlanning: {
		"Who is your ideal customer? Describe them in a sentence or two.",
		"What stage is your business idea at?",
		"How would you prefer to run the business?\n• Full-time on the business\n• Part-time alongside a job\n• Flexible hours as a freelancer\n• Together with a co-founder",
		"What's your main goal for this business?",
	},
	models.StateRoadmapping: {
		"How soon do you want to launch?",
		"How will you reach your first customers?",
		"What's your biggest concern about starting?",
		"Have you registered your business name yet?",
	},
	models.StateImplementation: {
		"Which roadmap task are you working on right now?",
		"Are you ready to mark any tasks as done? Reply yes or no.",
	},
}

// ScriptQuestion returns the scripted question at the given index for a flow
// state, and whether one exists.
func ScriptQuestion(state models.StateType, index int) (string, bool) {
	script, ok := phaseScripts[state]
	if !ok || index < 0 || index >= len(script) {
		return "", false
	}
	return script[index], true
}

// ScriptLength returns the number of scripted questions for a flow state.
func ScriptLength(state models.StateType) int {
	return len(phaseScripts[state])
}

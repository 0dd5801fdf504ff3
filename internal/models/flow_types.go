// Package models defines flow type definitions to avoid circular imports.
package models

// FlowType represents a specific type of guided flow
type FlowType string

// StateType represents a specific state within a flow
type StateType string

// DataKey represents a key for storing state-specific data
type DataKey string

// Flow type constants.
const (
	FlowTypeOnboarding FlowType = "onboarding"
)

// State constants for the onboarding flow. The session's state tracks which
// pipeline phase currently drives the conversation.
const (
	StateIntake         StateType = "INTAKE"
	StatePlanning       StateType = "PLANNING"
	StateRoadmapping    StateType = "ROADMAPPING"
	StateImplementation StateType = "IMPLEMENTATION"
	StateComplete       StateType = "COMPLETE"
)

// Data key constants for the onboarding flow.
const (
	DataKeyNavigationState  DataKey = "navigationState"  // serialized pipeline item statuses
	DataKeyProgressSnapshot DataKey = "progressSnapshot" // serialized progress indicator list
	DataKeyDismissedPrompts DataKey = "dismissedPrompts" // dismissed guidance prompt IDs for the session
	DataKeySkillRatings     DataKey = "skillRatings"     // in-progress skill rating values
	DataKeyDeclarationDraft DataKey = "declarationDraft" // in-progress completion declaration
	DataKeyRoadmapText      DataKey = "roadmapText"      // finished roadmap text for export
	DataKeyQuestionIndex    DataKey = "questionIndex"    // position within the static phase script
	DataKeyLastAskedAt      DataKey = "lastAskedAt"      // timestamp of last outgoing question (RFC3339)
)

// PhaseToState maps a pipeline phase to its flow state.
func PhaseToState(p PhaseID) StateType {
	switch p {
	case PhaseIntake:
		return StateIntake
	case PhasePlanning:
		return StatePlanning
	case PhaseRoadmapping:
		return StateRoadmapping
	case PhaseImplementation:
		return StateImplementation
	default:
		return StateIntake
	}
}

// StateToPhase maps a flow state back to its pipeline phase.
func StateToPhase(s StateType) PhaseID {
	switch s {
	case StateIntake:
		return PhaseIntake
	case StatePlanning:
		return PhasePlanning
	case StateRoadmapping:
		return PhaseRoadmapping
	case StateImplementation, StateComplete:
		return PhaseImplementation
	default:
		return PhaseIntake
	}
}

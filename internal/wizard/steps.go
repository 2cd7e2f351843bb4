// Package wizard drives a user through the five hackathon planning stages.
//
// A Manager owns one Session per signed-in user. Stage operations read the
// entity resolved by the previous stage from the session, call the
// generation service, persist the result through a Store and hand the new
// entity back to the session.
package wizard

import "fmt"

// Step numbers a wizard stage, 1 through 5.
type Step int

const (
	StepHackathon Step = iota + 1
	StepIdeas
	StepArchitecture
	StepGuide
	StepDeployment
)

// StepInfo is the sidebar metadata for a step.
type StepInfo struct {
	Number      Step   `json:"number"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

var stepInfo = [...]StepInfo{
	{StepHackathon, "Hackathon Info", "Analyze rules & constraints"},
	{StepIdeas, "Project Ideas", "Recommend feasible projects"},
	{StepArchitecture, "Execution Plan", "Visualize architecture"},
	{StepGuide, "Build Guide", "Step-by-step instructions"},
	{StepDeployment, "Deployment", "Go live instructions"},
}

// Steps returns metadata for all steps in order.
func Steps() []StepInfo {
	out := make([]StepInfo, len(stepInfo))
	copy(out, stepInfo[:])
	return out
}

func (s Step) Valid() bool { return s >= StepHackathon && s <= StepDeployment }

func (s Step) String() string {
	switch s {
	case StepHackathon:
		return "hackathon"
	case StepIdeas:
		return "ideas"
	case StepArchitecture:
		return "architecture"
	case StepGuide:
		return "guide"
	case StepDeployment:
		return "deployment"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

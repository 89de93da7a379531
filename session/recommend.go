package session

import "fmt"

// DetectabilityQuestions are asked in order; each "yes" lowers the
// recommended detectability rating by one band.
var DetectabilityQuestions = []string{
	"Does this system have redundancy, i.e. multiple units of the same component/subsystem in the case one fails?",
	"Does this system have diversity, i.e. multiple components/subsystems that are responsible for the same function?",
	"Does this system have safety features, e.g. sensors, user-warnings, fail-safes?",
}

// DetectabilityRecommendations is indexed by the number of "yes" answers.
var DetectabilityRecommendations = []string{
	"Recommended Detectability: 9-10 (Unacceptable)",
	"Recommended Detectability: 7-8 (Severe)",
	"Recommended Detectability: 4-6 (Medium)",
	"Recommended Detectability: 1-3 (Low)",
}

// RecommendDetectability maps one answer per question to a recommendation.
func RecommendDetectability(answers []bool) (string, error) {
	if len(answers) != len(DetectabilityQuestions) {
		return "", fmt.Errorf("%w: expected %d answers, got %d",
			ErrValidation, len(DetectabilityQuestions), len(answers))
	}
	yes := 0
	for _, a := range answers {
		if a {
			yes++
		}
	}
	return DetectabilityRecommendations[yes], nil
}

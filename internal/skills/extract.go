// Package skills recognizes technology keywords in free-text job descriptions.
package skills

import "strings"

// MaxSkills is the maximum number of skills reported for one description
const MaxSkills = 10

// vocabulary is matched in order; the order determines the output order.
var vocabulary = []string{
	"Python", "Java", "JavaScript", "TypeScript", "React", "Angular", "Vue",
	"Node.js", "Django", "Flask", "Spring", "Express", "SQL", "PostgreSQL",
	"MongoDB", "Redis", "AWS", "Azure", "GCP", "Docker", "Kubernetes",
	"Git", "Linux", "REST", "GraphQL", "Microservices", "CI/CD",
	"Machine Learning", "AI", "Data Science", "TensorFlow", "PyTorch",
	"Pandas", "NumPy", "Scikit-learn", "HTML", "CSS", "Bootstrap",
	"jQuery", "Webpack", "Babel", "Jest", "Mocha", "Selenium",
}

// Vocabulary returns a copy of the recognized skill keywords in match order
func Vocabulary() []string {
	out := make([]string, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// Extract returns the recognized skills found in description as a
// comma-separated list. Matching is a case-insensitive substring test, so
// "Java" also matches inside "JavaScript".
func Extract(description string) string {
	if description == "" {
		return ""
	}

	lower := strings.ToLower(description)
	found := make([]string, 0, MaxSkills)
	for _, skill := range vocabulary {
		if strings.Contains(lower, strings.ToLower(skill)) {
			found = append(found, skill)
			if len(found) == MaxSkills {
				break
			}
		}
	}

	return strings.Join(found, ", ")
}

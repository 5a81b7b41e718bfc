package assistant

import (
	"strings"
	"unicode"
)

const (
	ActionCreate    = "create"
	ActionComplete  = "complete"
	ActionPay       = "pay"
	ActionUpdate    = "update"
	ActionDelete    = "delete"
	ActionQuery     = "query"
	ActionSummarize = "summarize"
	ActionChat      = "chat"

	EntityTask     = "task"
	EntityBill     = "bill"
	EntityHabit    = "habit"
	EntityDocument = "document"
	EntityGeneral  = "general"
)

// Intent is the action/entity pair inferred from a chat message.
type Intent struct {
	ActionType string  `json:"actionType"`
	EntityType string  `json:"entityType"`
	Confidence float64 `json:"confidence"`
}

// Classifier matches messages against ordered keyword tables.
type Classifier struct {
	actions  []KeywordGroup
	entities []KeywordGroup
}

func NewClassifier(spec *PromptSpec) *Classifier {
	return &Classifier{
		actions:  normalizeGroups(spec.Actions),
		entities: normalizeGroups(spec.Entities),
	}
}

// DetectIntent classifies message. The first action and the first entity
// whose keywords appear as whole words win.
func (c *Classifier) DetectIntent(message string) Intent {
	m := normalize(message)
	if strings.TrimSpace(m) == "" {
		return Intent{ActionType: ActionChat, EntityType: EntityGeneral, Confidence: 0.2}
	}

	action := firstMatch(m, c.actions)
	entity := firstMatch(m, c.entities)

	// Implied values below do not raise confidence.
	confidence := 0.2
	switch {
	case action != "" && entity != "":
		confidence = 0.9
	case action != "" || entity != "":
		confidence = 0.6
	}

	if action == "" && strings.Contains(message, "?") {
		action = ActionQuery
	}
	if action == ActionPay && entity == "" {
		entity = EntityBill
	}
	if action == "" {
		action = ActionChat
	}
	if entity == "" {
		entity = EntityGeneral
	}
	return Intent{ActionType: action, EntityType: entity, Confidence: confidence}
}

func firstMatch(m string, groups []KeywordGroup) string {
	for _, g := range groups {
		if containsAny(m, g.Keywords) {
			return g.Name
		}
	}
	return ""
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// normalize lowercases s, turns punctuation into spaces and pads it so that
// keywords only match whole words.
func normalize(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	return " " + strings.Join(fields, " ") + " "
}

func normalizeGroups(groups []KeywordGroup) []KeywordGroup {
	out := make([]KeywordGroup, 0, len(groups))
	for _, g := range groups {
		kws := make([]string, 0, len(g.Keywords))
		for _, k := range g.Keywords {
			if n := normalize(k); strings.TrimSpace(n) != "" {
				kws = append(kws, n)
			}
		}
		out = append(out, KeywordGroup{Name: g.Name, Keywords: kws})
	}
	return out
}

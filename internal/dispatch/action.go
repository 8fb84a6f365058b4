package dispatch

import "fmt"

// Action is the closed set of AI operations the gateway supports. Adding an
// action means extending the dispatch table in buildSpec and the cost keys
// below; unknown names are rejected before any cost or provider work.
type Action int

const (
	ActionSummary Action = iota
	ActionKeyTakeaway
	ActionChat
	ActionLinkedInComment
)

const (
	nameSummary         = "summary"
	nameKeyTakeaway     = "key-takeaway"
	nameChat            = "chat"
	nameLinkedInComment = "generate_linkedin_comment"

	// The comment action is metered under two distinct keys depending on
	// whether a persona profile was supplied.
	CostKeyLinkedInPersona = "linkedin_comment_persona"
	CostKeyLinkedInGeneric = "linkedin_comment_generic"
)

func ParseAction(name string) (Action, error) {
	switch name {
	case nameSummary:
		return ActionSummary, nil
	case nameKeyTakeaway:
		return ActionKeyTakeaway, nil
	case nameChat:
		return ActionChat, nil
	case nameLinkedInComment:
		return ActionLinkedInComment, nil
	default:
		return 0, fmt.Errorf("invalid action: %q", name)
	}
}

func (a Action) String() string {
	switch a {
	case ActionSummary:
		return nameSummary
	case ActionKeyTakeaway:
		return nameKeyTakeaway
	case ActionChat:
		return nameChat
	case ActionLinkedInComment:
		return nameLinkedInComment
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// CostKey is the name used for cost lookup and usage logging.
func (a Action) CostKey(personaActive bool) string {
	if a != ActionLinkedInComment {
		return a.String()
	}
	if personaActive {
		return CostKeyLinkedInPersona
	}
	return CostKeyLinkedInGeneric
}

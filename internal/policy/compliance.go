// Package policy implements the representation/advice refusal gate (F) and
// the citation enforcer (G), plus the fixed disclaimer and refusal text
// carried verbatim from the upstream compliance language.
package policy

// DisclaimerText is attached to every chat response.
const DisclaimerText = "IMMCAD is an informational tool and not legal advice. " +
	"Consult a licensed Canadian immigration lawyer or RCIC for advice on your case."

// RefusalText is returned in place of an answer when the policy gate refuses a message.
const RefusalText = "I can provide general informational guidance only. " +
	"I cannot provide personalized legal advice or represent you in legal proceedings."

// SafeConstrainedResponse is returned by the citation enforcer when an
// answer has no supporting citations.
const SafeConstrainedResponse = "I do not have enough grounded legal context to answer safely. " +
	"Please refine your question or provide more details."

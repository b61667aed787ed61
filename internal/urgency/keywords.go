package urgency

import "github.com/wanjiru/triagedesk/internal/domain"

type tier struct {
	level    domain.UrgencyLevel
	score    int
	keywords []string
}

// tiers are scanned in priority order. A match raises the running score
// only when the tier score strictly exceeds it.
var tiers = []tier{
	{
		level: domain.UrgencyCritical,
		score: 10,
		keywords: []string{
			"urgent", "emergency", "immediately", "asap", "critical", "stuck",
			"cant access", "locked out", "fraud", "unauthorized", "scam",
			"dispute", "error", "failed transaction", "cant login", "can't access",
			"can't login", "blocked", "hacked", "stolen",
		},
	},
	{
		level: domain.UrgencyHigh,
		score: 8,
		keywords: []string{
			"loan approval", "disbursement", "when will i receive", "payment",
			"not received", "pending", "waiting", "delay", "overdue",
			"rejected", "denied", "problem", "issue", "not working",
			"late", "due", "crb", "credit report", "batch number",
			"haven't received", "still waiting", "why was",
		},
	},
	{
		level: domain.UrgencyMedium,
		score: 5,
		keywords: []string{
			"how to", "help", "question", "when", "status", "update",
			"change", "modify", "check", "verify", "confirm", "please",
			"kindly", "can i", "what is", "how long", "why",
		},
	},
}

// lowKeywords only contribute to the matched list; they never raise the
// score above the default and are inspected only when no higher tier hit.
var lowKeywords = []string{
	"thank", "thanks", "information", "just checking", "wondering",
	"curious", "general question", "fyi", "ok", "okay", "alright",
	"appreciate", "god bless", "have a great",
}

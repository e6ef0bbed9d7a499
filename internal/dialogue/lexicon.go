package dialogue

import (
	"regexp"
	"strings"
)

const (
	TopicAutoAccident       = "auto_accident"
	TopicSlipAndFall        = "slip_and_fall"
	TopicWorkplaceInjury    = "workplace_injury"
	TopicMedicalMalpractice = "medical_malpractice"
	TopicGeneral            = "general"
)

var (
	wordPattern = regexp.MustCompile(`[a-z0-9']+`)

	greetingPhrasePattern = regexp.MustCompile(`\bgood (morning|afternoon|evening|day)\b`)
	greetingTokens        = setOf("hi", "hello", "hey", "hiya", "howdy", "greetings", "heya", "hola", "yo", "sup")
	greetingFiller        = setOf("there", "all", "everyone", "folks", "team", "again", "friend", "guys", "yall", "y'all", "oh", "um", "uh")

	appreciationPattern = regexp.MustCompile(`\b(thanks|thank you|thank u|thx|ty|appreciate(d)?|grateful|that'?s (very |really )?helpful|very helpful)\b`)
	nextStepPattern     = regexp.MustCompile(`\b(what'?s next|what next|what now|next steps?|what (should|do) i do( now| next)?|then what|what happens next|go on|continue|what else should i do)\b`)
	strongRefusal       = regexp.MustCompile(`\b(skip( it| that)?|no,? thanks|no thank you|(don'?t|do not) want to (share|give|say|tell)|prefer not( to)?|(i'?d )?rather not|anonymous|i refuse|won'?t (share|give|tell|say))\b`)
	weakRefusal         = regexp.MustCompile(`^(no|nope|nah|not now|later|maybe later|pass|no way)[.!]*$`)
	appointmentPattern  = regexp.MustCompile(`\b(appointments?|schedule|book(ing)?|consultation|consult|meet (with )?(an? |your )?(attorney|lawyer)|(speak|talk) (to|with) (an? |your )?(attorney|lawyer|someone)|(call|contact) me (back|at|tomorrow|today|soon))\b`)
	affirmativePattern  = regexp.MustCompile(`^(yes|yeah|yep|sure|ok(ay)?|please|absolutely|definitely|sounds good|let'?s do (it|that))\b`)
	questionLead        = regexp.MustCompile(`^(what|how|when|where|why|who|which|do|does|did|can|could|is|are|will|would|should|may)\b`)

	topicPatterns = []struct {
		topic   string
		pattern *regexp.Regexp
	}{
		{TopicSlipAndFall, regexp.MustCompile(`\b(slip(ped|ping)?( and fall)?|trip(ped)? and fell|fell (down|on)|wet floor|premises liability)\b`)},
		{TopicWorkplaceInjury, regexp.MustCompile(`\b(workplace|on the job|workers'? ?comp(ensation)?|(hurt|injured) (at|on) (work|the job)|construction site|my employer)\b`)},
		{TopicMedicalMalpractice, regexp.MustCompile(`\b(malpractice|misdiagnos\w*|surgical (error|mistake)|medical negligence|wrong medication)\b`)},
		{TopicAutoAccident, regexp.MustCompile(`\b(car|auto|vehicle|truck|motorcycle|crash(ed)?|collision|rear[- ]?ended|t-?boned|hit by|hit and run|traffic|drunk driver)\b`)},
	}

	salientWords = setOf("accident", "injury", "injured", "hurt", "crash", "collision", "slip", "fall", "case", "cases",
		"legal", "lawyer", "attorney", "sue", "claim", "compensation", "damages", "medical", "hospital",
		"insurance", "fault", "settlement", "consultation", "appointment", "question", "help", "fees", "cost")

	interestKeywords = setOf("accident", "injury", "injured", "hurt", "case", "lawyer", "attorney", "claim",
		"compensation", "settlement", "sue", "insurance", "consultation", "represent", "hire")

	insurerPattern = regexp.MustCompile(`\b(recorded statement|adjuster (called|contacted|wants)|insurance (wants|called|company called)|insurer (wants|called))\b`)

	redFlagPattern = regexp.MustCompile(`\b(severe headache|vision (changes?|problems?)|blurr(y|ed) vision|chest pain|numbness|numb|dizz(y|iness)|confusion|feel(ing)? confused|loss of consciousness|lost consciousness|passed out|difficulty breathing|trouble breathing|can'?t breathe)\b`)
)

func setOf(words ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		out[w] = struct{}{}
	}
	return out
}

func normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.NewReplacer("’", "'", "‘", "'").Replace(text)
	return strings.Join(strings.Fields(text), " ")
}

func words(normalized string) []string {
	return wordPattern.FindAllString(normalized, -1)
}

// detectTopic returns the first matching topic or "".
func detectTopic(normalized string) string {
	for _, tp := range topicPatterns {
		if tp.pattern.MatchString(normalized) {
			return tp.topic
		}
	}
	return ""
}

func hasSalientContent(tokens []string) bool {
	for _, tok := range tokens {
		if _, ok := salientWords[tok]; ok {
			return true
		}
	}
	return false
}

func isQuestion(normalized string) bool {
	return strings.HasSuffix(normalized, "?") || questionLead.MatchString(normalized)
}

// IsRedFlag reports whether text mentions symptoms that need immediate care.
func IsRedFlag(text string) bool {
	return redFlagPattern.MatchString(normalize(text))
}

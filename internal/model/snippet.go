package model

// Section is a named, ordered run of sentences extracted from the analyst
// report. Sections are produced once by extraction and read-only afterwards.
type Section struct {
	Name      string   `json:"name"`
	Sentences []string `json:"sentences"`
}

// ClaimType categorizes the nature of the claim a snippet makes.
type ClaimType string

const (
	ClaimFact       ClaimType = "fact"       // Verifiable statement about what happened
	ClaimForecast   ClaimType = "forecast"   // Forward-looking projection
	ClaimHypothesis ClaimType = "hypothesis" // Analyst reasoning or speculation
	ClaimOther      ClaimType = "other"      // Everything else
)

// ParseClaimType maps a raw classifier label to a ClaimType, falling back to
// "other" for anything unrecognized.
func ParseClaimType(s string) ClaimType {
	switch ClaimType(s) {
	case ClaimFact, ClaimForecast, ClaimHypothesis, ClaimOther:
		return ClaimType(s)
	default:
		return ClaimOther
	}
}

// SubjectScope categorizes what a snippet is about.
type SubjectScope string

const (
	ScopeCompany  SubjectScope = "company"  // The covered company itself
	ScopeIndustry SubjectScope = "industry" // Competitors, sector developments
	ScopeMacro    SubjectScope = "macro"    // Rates, FX, broad economic context
	ScopeOther    SubjectScope = "other"
)

func ParseSubjectScope(s string) SubjectScope {
	switch SubjectScope(s) {
	case ScopeCompany, ScopeIndustry, ScopeMacro, ScopeOther:
		return SubjectScope(s)
	default:
		return ScopeOther
	}
}

// SentenceType categorizes the content of a snippet.
type SentenceType string

const (
	TypeQuantitative SentenceType = "quantitative" // Numbers, growth rates, EPS, margins, targets
	TypeQualitative  SentenceType = "qualitative"  // Descriptive or strategic statements
)

func ParseSentenceType(s string) SentenceType {
	switch SentenceType(s) {
	case TypeQuantitative, TypeQualitative:
		return SentenceType(s)
	default:
		return TypeQualitative
	}
}

// ContentRelevance categorizes how checkable a snippet is against company
// disclosures.
type ContentRelevance string

const (
	RelevanceCompany ContentRelevance = "company_relevant" // Checkable against disclosures
	RelevanceContext ContentRelevance = "context_only"     // Background, not checkable
	RelevanceOther   ContentRelevance = "other"
)

func ParseContentRelevance(s string) ContentRelevance {
	switch ContentRelevance(s) {
	case RelevanceCompany, RelevanceContext, RelevanceOther:
		return ContentRelevance(s)
	default:
		return RelevanceOther
	}
}

// InfoSource tags where in the report a snippet was lifted from.
type InfoSource string

const (
	SourceText  InfoSource = "text"
	SourceTable InfoSource = "table"
)

func ParseInfoSource(s string) InfoSource {
	if InfoSource(s) == SourceTable {
		return SourceTable
	}
	return SourceText
}

// DefaultConfidence is used whenever the classifier fails to supply a score.
const DefaultConfidence = 0.5

// Snippet is an atomic claim extracted from a report sentence, carrying four
// independent classification dimensions plus an information-source tag, each
// with its own confidence in [0,1]. Exactly one value per dimension; inputs
// the classifier cannot place fall back to the explicit "other" labels.
type Snippet struct {
	Text    string `json:"snippet"`
	Section string `json:"section"`
	Index   int    `json:"index"`

	ClaimType        ClaimType        `json:"claim_type"`
	SubjectScope     SubjectScope     `json:"subject_scope"`
	SentenceType     SentenceType     `json:"sentence_type"`
	ContentRelevance ContentRelevance `json:"content_relevance"`

	ClaimTypeConfidence        float64 `json:"claim_type_confidence"`
	SubjectScopeConfidence     float64 `json:"subject_scope_confidence"`
	SentenceTypeConfidence     float64 `json:"sentence_type_confidence"`
	ContentRelevanceConfidence float64 `json:"content_relevance_confidence"`

	Source           InfoSource `json:"source"`
	SourceConfidence float64    `json:"source_confidence"`
}

// UnclassifiedSnippet returns a snippet carrying the fallback labels, used
// when a sentence has no matching prediction in the model response.
func UnclassifiedSnippet(text, section string, index int) Snippet {
	return Snippet{
		Text:                       text,
		Section:                    section,
		Index:                      index,
		ClaimType:                  ClaimOther,
		SubjectScope:               ScopeOther,
		SentenceType:               TypeQualitative,
		ContentRelevance:           RelevanceOther,
		ClaimTypeConfidence:        DefaultConfidence,
		SubjectScopeConfidence:     DefaultConfidence,
		SentenceTypeConfidence:     DefaultConfidence,
		ContentRelevanceConfidence: DefaultConfidence,
		Source:                     SourceText,
		SourceConfidence:           DefaultConfidence,
	}
}

package lmstudio

import (
	"fmt"

	"github.com/algorithm-audits/audits/internal/audit"
)

const (
	noAbstract = "(no abstract)"
	noKeywords = "(none)"
)

// auditExamples anchors the classification prompt with known positives and
// the kinds of papers to reject.
const auditExamples = `Examples of algorithm audit studies (INCLUDE these types):
- "Detecting price and search discrimination on the internet" - Tests whether websites show different prices to different users
- "Gender Shades: Intersectional Accuracy Disparities in Commercial Gender Classification" - Tests commercial facial recognition for bias
- "Auditing autocomplete: Suggestion networks and recursive algorithm interrogation" - Tests search autocomplete for bias
- "Algorithmic bias? An empirical study of apparent gender-based discrimination in the display of stem career ads" - Tests ad delivery for gender bias
- "Does Object Recognition Work for Everyone?" - Tests commercial object recognition across geographies

Examples of NON-audit studies (EXCLUDE these types):
- Systematic reviews or meta-analyses of existing literature
- Surveys of practitioners or users about their perceptions
- Position papers, opinion pieces, or commentaries
- Theoretical frameworks or taxonomies
- Papers about building/improving ML models without auditing deployed systems
- Papers about AI ethics, policy, or governance without empirical auditing
- Papers that study algorithmic bias conceptually but don't test a real system
- Papers that propose fairness metrics without applying them to audit a system
- Medical AI papers that evaluate model accuracy without a bias/fairness audit lens
- Papers about AI in education, healthcare etc. that don't audit for bias/discrimination`

// classificationPrompt takes the examples, title, abstract and keywords.
const classificationPrompt = `You are classifying academic papers as algorithm audit studies or not.

An algorithm audit study is an EMPIRICAL study that tests, probes, or evaluates a deployed algorithmic system (like a search engine, recommendation system, ad platform, facial recognition API, pricing algorithm, etc.) for bias, discrimination, distortion, misjudgement, or exploitation. The study must involve actual data collection or experimentation with a real system.

%s

Based on the title, abstract, and keywords below, is this paper an algorithm audit study?

Title: %s
Abstract: %s
Author Keywords: %s

Answer with ONLY "yes" or "no" (lowercase, nothing else).`

// extractionPrompt takes the title, abstract and keywords.
const extractionPrompt = `You are extracting structured information from an algorithm audit study.

The study audits an algorithmic system. Extract the following fields. Use the exact categories listed.

Method (pick one or more, newline-separated):
- Direct scrape (researchers directly query/test the system)
- Sock puppets (researchers create fake accounts/profiles to test)
- Carrier puppet (researchers use real accounts with modified attributes)
- Crowdsourcing (researchers recruit participants to test)
- Code (researchers analyze source code or open-source models)

Domain (pick one):
- Advertising, Criminal Justice, Language Processing, Mapping, Pricing, Recommendation, Search, Vision, Healthcare, Hiring, Social Media, Content Moderation, Credit/Finance, Other

Organization: The name(s) of the company/platform/system being audited (e.g., Google, Facebook, Amazon). Use newline to separate multiple. If unclear, leave blank.

Behavior (pick one):
- Discrimination (system treats groups differently based on protected attributes)
- Distortion (system presents skewed/inaccurate information)
- Exploitation (system takes advantage of users)
- Misjudgement (system makes systematic errors)

Title: %s
Abstract: %s
Author Keywords: %s

Respond in EXACTLY this JSON format (no other text):
{"method": "...", "domain": "...", "organization": "...", "behavior": "..."}`

// ClassificationPrompt renders the yes/no audit question for a study.
func ClassificationPrompt(s audit.Study, abstractMax int) string {
	abstract, keywords := promptFields(s, abstractMax)
	return fmt.Sprintf(classificationPrompt, auditExamples, s.Title, abstract, keywords)
}

// ExtractionPrompt renders the field extraction request for a study.
func ExtractionPrompt(s audit.Study, abstractMax int) string {
	abstract, keywords := promptFields(s, abstractMax)
	return fmt.Sprintf(extractionPrompt, s.Title, abstract, keywords)
}

func promptFields(s audit.Study, abstractMax int) (abstract, keywords string) {
	abstract = truncateRunes(s.Abstract, abstractMax)
	if abstract == "" {
		abstract = noAbstract
	}
	keywords = s.AuthorKeywords
	if keywords == "" {
		keywords = noKeywords
	}
	return abstract, keywords
}

// truncateRunes cuts s to at most max characters. A non-positive max
// disables truncation.
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

package chat

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/ayush/pdf-chat/backend/internal/textanalysis"
)

const (
	DefaultDelayMin = 1 * time.Second
	DefaultDelayMax = 2 * time.Second

	summarySentences    = 5
	conclusionSentences = 5
	excerptSentences    = 3
	maxDates            = 5
	maxNumbers          = 10
	topicKeywords       = 5
)

var (
	methodKeywords  = []string{"method", "approach", "technique", "procedure", "process", "analysis", "study", "research"}
	findingKeywords = []string{"result", "finding", "conclusion", "outcome", "discovered", "showed", "demonstrated", "revealed", "found"}
)

// rule routes a question to a branch. Rules are evaluated in order and the
// first matching one answers.
type rule struct {
	name    string
	matches func(question string) bool
	answer  func(question, text string) string
}

func keywords(words ...string) func(string) bool {
	return func(q string) bool {
		for _, w := range words {
			if strings.Contains(q, w) {
				return true
			}
		}
		return false
	}
}

var rules = []rule{
	{name: "summary", matches: keywords("summary", "summarize"), answer: summaryAnswer},
	{name: "topic", matches: keywords("main topic", "about"), answer: topicAnswer},
	{name: "conclusion", matches: keywords("conclusion", "conclude"), answer: conclusionAnswer},
	{name: "factual", matches: keywords("date", "when", "number"), answer: factualAnswer},
	{name: "methodology", matches: keywords("methodology", "method"), answer: methodologyAnswer},
	{name: "findings", matches: keywords("finding", "result"), answer: findingsAnswer},
}

// HeuristicResponder answers from the document text alone. It never fails.
type HeuristicResponder struct {
	delayMin time.Duration
	delayMax time.Duration
}

// NewHeuristicResponder builds a responder that waits a random duration in
// [delayMin, delayMax] before answering. Zero values skip the wait.
func NewHeuristicResponder(delayMin, delayMax time.Duration) *HeuristicResponder {
	if delayMax < delayMin {
		delayMax = delayMin
	}
	return &HeuristicResponder{delayMin: delayMin, delayMax: delayMax}
}

// Respond classifies the question and builds the answer. Context
// cancellation only cuts the simulated delay short.
func (h *HeuristicResponder) Respond(ctx context.Context, question, text string) string {
	h.wait(ctx)
	_, answer := Classify(question, text)
	return answer
}

// Classify returns the branch name and answer for question without any delay.
func Classify(question, text string) (string, string) {
	q := strings.ToLower(question)
	for _, r := range rules {
		if r.matches(q) {
			return r.name, r.answer(question, text)
		}
	}
	return "default", defaultAnswer(question, text)
}

func (h *HeuristicResponder) wait(ctx context.Context) {
	d := h.delayMin
	if spread := h.delayMax - h.delayMin; spread > 0 {
		d += time.Duration(rand.Int63n(int64(spread)))
	}
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func summaryAnswer(_, text string) string {
	sentences := firstN(textanalysis.SegmentSentences(text, textanalysis.MinSummaryLen), summarySentences)
	return fmt.Sprintf("Here's a summary of the main points from the document:\n\n%s.\n\n"+
		"This summary covers the key themes and important information from the text. "+
		"Would you like me to focus on any particular section?", strings.Join(sentences, ". "))
}

func topicAnswer(_, text string) string {
	top := textanalysis.TopKeywords(text, topicKeywords)
	return fmt.Sprintf("Based on my analysis, this document appears to focus on topics related to: %s.\n\n"+
		"The content discusses these themes throughout the text. "+
		"Would you like me to elaborate on any of these topics?", strings.Join(top, ", "))
}

func conclusionAnswer(_, text string) string {
	sentences := lastN(textanalysis.SegmentSentences(text, textanalysis.MinContextLen), conclusionSentences)
	return fmt.Sprintf("Looking at the concluding sections of the document:\n\n%s.\n\n"+
		"These appear to be the main conclusions or final points made in the document. "+
		"Is there a specific conclusion you'd like me to explain further?", strings.Join(sentences, ". "))
}

func factualAnswer(_, text string) string {
	var b strings.Builder
	b.WriteString("Here are some key facts and figures I found in the document:\n\n")

	if dates := textanalysis.Dates(text); len(dates) > 0 {
		fmt.Fprintf(&b, "Important dates mentioned: %s\n\n", strings.Join(firstN(dates, maxDates), ", "))
	}
	if numbers := textanalysis.Numbers(text); len(numbers) > 0 {
		fmt.Fprintf(&b, "Notable numbers: %s\n\n", strings.Join(firstN(numbers, maxNumbers), ", "))
	}

	b.WriteString("Would you like me to provide more context about any of these specific details?")
	return b.String()
}

func methodologyAnswer(_, text string) string {
	found := sentencesWith(text, methodKeywords)
	if len(found) == 0 {
		return "I couldn't find explicit methodology sections in this document. " +
			"The document may not contain detailed methodological information, or it might be structured differently. " +
			"Would you like me to search for specific research approaches or techniques?"
	}
	return fmt.Sprintf("Based on the document, here are the methodological approaches mentioned:\n\n%s\n\n"+
		"These sections describe the methods and approaches used in the document.", strings.Join(found, "\n\n"))
}

func findingsAnswer(_, text string) string {
	found := sentencesWith(text, findingKeywords)
	if len(found) == 0 {
		return "I couldn't identify specific findings or results sections in this document. " +
			"The document may present information differently, or the findings might be integrated throughout the text. " +
			"Would you like me to look for specific outcomes or conclusions?"
	}
	return fmt.Sprintf("Here are the key findings and results from the document:\n\n%s\n\n"+
		"These represent the main discoveries or outcomes presented in the document.", strings.Join(found, "\n\n"))
}

func defaultAnswer(question, text string) string {
	if matches := textanalysis.Search(text, question); len(matches) > 0 {
		return fmt.Sprintf("Based on the document, here's what I found related to your question:\n\n%s\n\n"+
			"Would you like me to elaborate on any specific aspect? "+
			"For more detailed and accurate responses, consider adding your OpenAI API key in settings.",
			strings.Join(firstN(matches, excerptSentences), "\n\n"))
	}
	return fmt.Sprintf("I searched through the document but couldn't find specific information directly related to \"%s\". "+
		"Could you try rephrasing your question or asking about a different aspect of the document?\n\n"+
		"Note: For more intelligent responses, you can add your OpenAI API key in the settings.", question)
}

func sentencesWith(text string, kws []string) []string {
	var out []string
	for _, s := range textanalysis.SegmentSentences(text, textanalysis.MinContextLen) {
		if textanalysis.ContainsAny(s, kws) {
			out = append(out, s)
			if len(out) == excerptSentences {
				break
			}
		}
	}
	return out
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func lastN(s []string, n int) []string {
	if len(s) > n {
		return s[len(s)-n:]
	}
	return s
}

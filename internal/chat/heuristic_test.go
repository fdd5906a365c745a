package chat

import (
	"context"
	"strings"
	"testing"
	"time"
)

const findingsDoc = "The study found that X increased by 40% in 2020. The method used was survey-based analysis."

func TestClassifyRouting(t *testing.T) {
	tests := []struct {
		question string
		want     string
	}{
		{"Can you summarize this?", "summary"},
		{"Give me a SUMMARY", "summary"},
		{"Summarize the conclusion", "summary"},
		{"What is the main topic of this document?", "topic"},
		{"What is this about?", "topic"},
		{"What are the conclusions?", "conclusion"},
		{"What do the authors conclude?", "conclusion"},
		{"When was it published?", "factual"},
		{"Are there any important dates or numbers mentioned?", "factual"},
		{"Explain the methodology used in this document", "methodology"},
		{"Which method was used?", "methodology"},
		{"What are the key findings?", "findings"},
		{"Show me the results", "findings"},
		{"Who wrote the preface?", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			got, answer := Classify(tt.question, findingsDoc)
			if got != tt.want {
				t.Fatalf("Classify(%q) = %s, want %s", tt.question, got, tt.want)
			}
			if strings.TrimSpace(answer) == "" {
				t.Fatal("answer must not be empty")
			}
		})
	}
}

func TestFindingsPicksKeywordSentences(t *testing.T) {
	_, answer := Classify("What are the key findings?", findingsDoc)
	if !strings.Contains(answer, "The study found that X increased by 40% in 2020") {
		t.Fatalf("expected finding sentence, got %q", answer)
	}
	if strings.Contains(answer, "survey-based") {
		t.Fatalf("method sentence must not be a finding: %q", answer)
	}
}

func TestMethodologyPicksKeywordSentences(t *testing.T) {
	_, answer := Classify("Explain the methodology", findingsDoc)
	if !strings.Contains(answer, "The method used was survey-based analysis") {
		t.Fatalf("expected method sentence, got %q", answer)
	}
}

func TestMethodologyNotFound(t *testing.T) {
	_, answer := Classify("What method?", "Cats sleep a great deal every day. Dogs bark at the mail carrier.")
	if !strings.Contains(answer, "couldn't find explicit methodology") {
		t.Fatalf("unexpected answer %q", answer)
	}
}

func TestTopicListsTopKeywords(t *testing.T) {
	_, answer := Classify("What is the main topic?", "solar power solar grid solar panels power lines")
	if !strings.Contains(answer, "solar, power, grid, panels, lines") {
		t.Fatalf("unexpected topic answer %q", answer)
	}
}

func TestSummaryUsesFirstFiveLongSentences(t *testing.T) {
	doc := strings.Repeat("This sentence is long enough to count. ", 3) +
		"Short one. " +
		"Fourth long sentence is right here now. Fifth long sentence is right here now. Sixth long sentence should be dropped."
	_, answer := Classify("summarize", doc)
	if strings.Contains(answer, "Short one") {
		t.Fatalf("short fragment leaked into summary: %q", answer)
	}
	if strings.Contains(answer, "Sixth") {
		t.Fatalf("summary must stop at five sentences: %q", answer)
	}
	if !strings.Contains(answer, "Fifth long sentence is right here now") {
		t.Fatalf("fifth sentence missing: %q", answer)
	}
}

func TestConclusionUsesLastSentences(t *testing.T) {
	doc := "First sentence here. Second sentence here. Third sentence here. Fourth sentence here. " +
		"Fifth sentence here. Sixth sentence here."
	_, answer := Classify("What do they conclude?", doc)
	if strings.Contains(answer, "First sentence") {
		t.Fatalf("first sentence should be outside the last five: %q", answer)
	}
	if !strings.Contains(answer, "Sixth sentence here") {
		t.Fatalf("last sentence missing: %q", answer)
	}
}

func TestFactualListsDatesAndNumbers(t *testing.T) {
	_, answer := Classify("Any dates?", "Signed on 12/05/2021 for 300 units in 1999.")
	if !strings.Contains(answer, "Important dates mentioned: 12/05/2021, 1999") {
		t.Fatalf("dates missing: %q", answer)
	}
	if !strings.Contains(answer, "Notable numbers: 12, 05, 2021, 300, 1999") {
		t.Fatalf("numbers missing: %q", answer)
	}
	if !strings.HasSuffix(answer, "Would you like me to provide more context about any of these specific details?") {
		t.Fatalf("closing sentence missing: %q", answer)
	}
}

func TestFactualWithoutFiguresKeepsClosing(t *testing.T) {
	_, answer := Classify("When?", "No figures at all in this text.")
	if strings.Contains(answer, "Notable numbers") || strings.Contains(answer, "Important dates") {
		t.Fatalf("unexpected lists: %q", answer)
	}
	if !strings.Contains(answer, "Would you like me to provide more context") {
		t.Fatalf("closing sentence missing: %q", answer)
	}
}

func TestDefaultSearchMatch(t *testing.T) {
	doc := "Penguins live in the south. Zebras live in Africa."
	_, answer := Classify("zebras", doc)
	if !strings.Contains(answer, "Zebras live in Africa") {
		t.Fatalf("expected matching sentence, got %q", answer)
	}
}

func TestDefaultNotFoundQuotesQuestion(t *testing.T) {
	q := `Who is "Bob" & co?`
	_, answer := Classify(q, "Nothing relevant here at all.")
	if !strings.Contains(answer, `"`+q+`"`) {
		t.Fatalf("question not quoted verbatim: %q", answer)
	}
}

func TestRespondIsDeterministic(t *testing.T) {
	h := NewHeuristicResponder(0, 0)
	ctx := context.Background()
	a := h.Respond(ctx, "What are the key findings?", findingsDoc)
	b := h.Respond(ctx, "What are the key findings?", findingsDoc)
	if a != b {
		t.Fatal("same input must give the same answer")
	}
}

func TestRespondEmptyDocumentStillAnswers(t *testing.T) {
	h := NewHeuristicResponder(0, 0)
	for _, q := range []string{"summarize", "main topic", "conclusion", "when", "method", "results", "anything"} {
		if strings.TrimSpace(h.Respond(context.Background(), q, "")) == "" {
			t.Errorf("empty answer for %q", q)
		}
	}
}

func TestRespondHonorsCancellation(t *testing.T) {
	h := NewHeuristicResponder(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan string, 1)
	go func() { done <- h.Respond(ctx, "summarize", findingsDoc) }()

	select {
	case answer := <-done:
		if answer == "" {
			t.Fatal("answer must still be produced")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled context should end the delay")
	}
}

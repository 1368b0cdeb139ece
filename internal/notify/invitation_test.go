package notify

import (
	"strings"
	"testing"

	"github.com/kursadbilgin/interview-dispatch/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestRenderInvitation(t *testing.T) {
	t.Parallel()

	round := domain.InterviewRound{
		Company:      "Acme",
		Interviewer:  "Jane Roe",
		Candidate:    "John Doe",
		RoundNumber:  2,
		CalendlyLink: strPtr("https://calendly.com/acme/r2"),
	}

	inv, err := RenderInvitation(round)
	if err != nil {
		t.Fatalf("RenderInvitation() error = %v", err)
	}

	if inv.Subject != "Interview Invitation: Acme - Round 2" {
		t.Fatalf("Subject = %q", inv.Subject)
	}
	for _, want := range []string{"Dear John Doe,", "<strong>Acme</strong>", "Jane Roe", "Round 2", `href="https://calendly.com/acme/r2"`} {
		if !strings.Contains(inv.HTML, want) {
			t.Fatalf("HTML missing %q", want)
		}
	}
	for _, want := range []string{"Dear John Doe,", "- Interviewer: Jane Roe", "- Round: 2", "https://calendly.com/acme/r2", "Best regards,\nJane Roe\nAcme"} {
		if !strings.Contains(inv.Text, want) {
			t.Fatalf("Text missing %q:\n%s", want, inv.Text)
		}
	}
}

func TestRenderInvitationFallbacks(t *testing.T) {
	t.Parallel()

	inv, err := RenderInvitation(domain.InterviewRound{
		Company:     "Acme",
		Interviewer: "  ",
		Candidate:   "John Doe",
		RoundNumber: 1,
	})
	if err != nil {
		t.Fatalf("RenderInvitation() error = %v", err)
	}

	if !strings.Contains(inv.HTML, "<span>TBA</span>") {
		t.Fatal("HTML should fall back to TBA interviewer")
	}
	if !strings.Contains(inv.Text, "- Interviewer: TBA") {
		t.Fatal("Text should fall back to TBA interviewer")
	}
	if !strings.Contains(inv.Text, "Best regards,\nInterview Team") {
		t.Fatal("Text sign-off should fall back to Interview Team")
	}
}

func TestRenderInvitationEscapesHTML(t *testing.T) {
	t.Parallel()

	inv, err := RenderInvitation(domain.InterviewRound{
		Company:     "Acme <script>alert(1)</script>",
		Candidate:   "John",
		RoundNumber: 1,
	})
	if err != nil {
		t.Fatalf("RenderInvitation() error = %v", err)
	}
	if strings.Contains(inv.HTML, "<script>alert(1)</script>") {
		t.Fatal("HTML body must escape field values")
	}
}

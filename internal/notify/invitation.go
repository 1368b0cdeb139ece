package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"

	"github.com/kursadbilgin/interview-dispatch/internal/domain"
)

const (
	interviewerFallback = "TBA"
	signOffFallback     = "Interview Team"
)

// Invitation is the rendered content of one interview invitation email.
type Invitation struct {
	Subject string
	HTML    string
	Text    string
}

type invitationData struct {
	Candidate    string
	Company      string
	Interviewer  string
	SignOff      string
	RoundNumber  int
	CalendlyLink string
}

var htmlInvitation = htmltemplate.Must(htmltemplate.New("invitation.html").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8" />
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #111827; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background: #4F46E5; color: #fff; padding: 16px; text-align: center; border-radius: 8px 8px 0 0; }
    .content { background: #F9FAFB; padding: 24px; border-radius: 0 0 8px 8px; }
    .button { display: inline-block; background: #4F46E5; color: #FFFFFF !important; padding: 12px 20px; text-decoration: none; border-radius: 6px; font-weight: bold; }
    .details { background: #fff; padding: 16px; border-radius: 6px; margin: 16px 0; border: 1px solid #E5E7EB; }
    .row { display: flex; justify-content: space-between; padding: 6px 0; }
    .label { font-weight: bold; color: #6B7280; }
    .footer { font-size: 12px; color: #6B7280; margin-top: 16px; text-align: center; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header"><h2>Interview Invitation</h2></div>
    <div class="content">
      <p>Dear {{.Candidate}},</p>
      <p>You have been shortlisted for an interview with <strong>{{.Company}}</strong>.</p>
      <div class="details">
        <div class="row"><span class="label">Company</span><span>{{.Company}}</span></div>
        <div class="row"><span class="label">Interviewer</span><span>{{.Interviewer}}</span></div>
        <div class="row"><span class="label">Round</span><span>Round {{.RoundNumber}}</span></div>
      </div>
      <p>Please schedule your interview:</p>
      <p><a class="button" href="{{.CalendlyLink}}">Schedule Interview</a></p>
      <div class="footer">This is an automated message from Weekday.</div>
    </div>
  </div>
</body>
</html>`))

var textInvitation = texttemplate.Must(texttemplate.New("invitation.txt").Parse(`Dear {{.Candidate}},

Congratulations! You have been shortlisted for an interview with {{.Company}}.

Interview Details:
- Company: {{.Company}}
- Interviewer: {{.Interviewer}}
- Round: {{.RoundNumber}}

Schedule your interview:
{{.CalendlyLink}}

Best regards,
{{.SignOff}}
{{.Company}}

This is an automated message from Weekday.`))

// Subject returns the invitation subject line for a round.
func Subject(round domain.InterviewRound) string {
	return fmt.Sprintf("Interview Invitation: %s - Round %d", round.Company, round.RoundNumber)
}

// RenderInvitation builds the subject, HTML body and plain-text body for round.
func RenderInvitation(round domain.InterviewRound) (Invitation, error) {
	data := invitationData{
		Candidate:   round.Candidate,
		Company:     round.Company,
		Interviewer: interviewerFallback,
		SignOff:     signOffFallback,
		RoundNumber: round.RoundNumber,
	}
	if interviewer := strings.TrimSpace(round.Interviewer); interviewer != "" {
		data.Interviewer = interviewer
		data.SignOff = interviewer
	}
	if round.CalendlyLink != nil {
		data.CalendlyLink = *round.CalendlyLink
	}

	var html bytes.Buffer
	if err := htmlInvitation.Execute(&html, data); err != nil {
		return Invitation{}, fmt.Errorf("failed to render html invitation: %w", err)
	}

	var text bytes.Buffer
	if err := textInvitation.Execute(&text, data); err != nil {
		return Invitation{}, fmt.Errorf("failed to render text invitation: %w", err)
	}

	return Invitation{
		Subject: Subject(round),
		HTML:    html.String(),
		Text:    text.String(),
	}, nil
}

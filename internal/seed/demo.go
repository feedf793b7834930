package seed

import (
	"fmt"
	"time"

	"github.com/welldanyogia/webrana-mailguard-backend/internal/models"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/risk"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/services"
	"github.com/welldanyogia/webrana-mailguard-backend/internal/workflow"
)

// DemoAdmin is the console's bootstrap administrator
var DemoAdmin = services.ProvisionRequest{
	ID:          "admin-001",
	Email:       "cavid@gmail.com",
	AccessCode:  "cavid123",
	Role:        models.RoleAdmin,
	DisplayName: "Cavid Admin",
	Avatar:      "https://picsum.photos/seed/admin/200",
}

// DemoUsers are the console's demo accounts
var DemoUsers = []services.ProvisionRequest{
	{ID: "u-1", Email: "user1@company.com", AccessCode: "demo123", Role: models.RoleUser, DisplayName: "Alex Thompson", Avatar: "https://picsum.photos/seed/u1/200"},
	{ID: "u-2", Email: "user2@beta.com", AccessCode: "beta456", Role: models.RoleUser, DisplayName: "Sarah Chen", Avatar: "https://picsum.photos/seed/u2/200"},
	{ID: "u-3", Email: "user3@gamma.com", AccessCode: "gamma789", Role: models.RoleUser, DisplayName: "Michael Ross", Avatar: "https://picsum.photos/seed/u3/200"},
	{ID: "u-4", Email: "user4@delta.io", AccessCode: "delta321", Role: models.RoleUser, DisplayName: "Elena Gilbert", Avatar: "https://picsum.photos/seed/u4/200"},
	{ID: "u-5", Email: "user5@omega.net", AccessCode: "omega654", Role: models.RoleUser, DisplayName: "Chris Evans", Avatar: "https://picsum.photos/seed/u5/200"},
	{ID: "u-6", Email: "user6@zeta.co", AccessCode: "zeta987", Role: models.RoleUser, DisplayName: "Natasha Romanoff", Avatar: "https://picsum.photos/seed/u6/200"},
}

var subjects = []string{
	"Invoice #4920 Pending", "Weekly Sync Meeting", "Security Update Required",
	"New Project Alpha Specs", "Confidential: Q3 Results", "Employee Handbook 2024",
	"Urgent: Account Verification", "Purchase Order Approval", "Team Building Lunch",
	"Server Migration Schedule", "Customer Feedback Report", "Benefit Enrollment",
	"External: Job Opportunity", "Legacy System Patch", "Marketing Campaign Feedback",
	"API Key Rotation Notice", "Contract Renewal: Phase 2", "Payroll Adjustment",
	"Internal: Holiday Schedule", "Vendor Security Assessment",
}

var senders = []string{
	"hr@enterprise.com", "finance@globex.io", "support@microsoft.com",
	"it-admin@secure.net", "no-reply@amazon.com", "billing@services.co",
	"hacker@suspicious-link.xyz", "ceo@internal-comms.com", "marketing@ad-agency.net",
	"accounting@external-audit.com", "legal@corporate-counsel.io",
}

var bodies = []string{
	"Please review the attached invoice for the recent cloud services migration. Payment is due by Friday.",
	"Your account was accessed from a new device in Moscow, Russia. If this wasn't you, reset your password.",
	"Attached is the payroll report for this month. Please keep this information strictly confidential.",
	"Hi team, just a reminder about our sync today. We need to discuss the Project Alpha timeline.",
	"Important: We are updating our hardware security policies. All employees must sign the new agreement.",
	"CONGRATULATIONS! You've won a $1000 Amazon gift card. Click the link to claim your prize immediately.",
	"The contract for the new vendor has arrived. Please review the terms before we finalize the deal.",
	"Emergency: Our main API gateway is down. We need the root access keys to restart the instance.",
	"Hey, are you free? I need you to purchase some gift cards for a client. I'll reimburse you later.",
}

const (
	receivedWindow = 1_500_000_000 * time.Millisecond
	sentWindow     = 800_000_000 * time.Millisecond

	sentBody     = "Confirmed. I've updated the records accordingly. Let me know if you need anything else."
	sentAnalysis = "Internal communication via verified endpoint."
	sentScore    = 5

	blockedAnalysis = "Heuristic engine detected malicious patterns: Suspicious sender domain + urgency keywords."
	cleanAnalysis   = "Email appears legitimate but contains standard business terminology."
)

func (s *Seeder) pick(list []string) string {
	return list[s.rand.IntN(len(list))]
}

func (s *Seeder) ago(window time.Duration) time.Time {
	return s.now().Add(-time.Duration(s.rand.Float64() * float64(window))).UTC()
}

// generateEmails builds the demo mailbox: per demo user, received mail with a
// random score and a few low-risk sent replies
func (s *Seeder) generateEmails() []models.Email {
	emails := make([]models.Email, 0, len(DemoUsers)*(ReceivedPerUser+SentPerUser))
	seq := 1
	nextID := func() string {
		id := fmt.Sprintf("e-gen-%d", seq)
		seq++
		return id
	}

	for _, user := range DemoUsers {
		for i := 0; i < ReceivedPerUser; i++ {
			score := float64(s.rand.IntN(100))
			analysis := cleanAnalysis
			suggestions := []string{"No action needed"}
			if risk.ShouldBlock(score) {
				analysis = blockedAnalysis
				suggestions = []string{"Quarantine immediately", "Contact sender via secondary channel"}
			}

			emails = append(emails, models.Email{
				ID:          nextID(),
				Sender:      s.pick(senders),
				Recipient:   user.Email,
				Subject:     s.pick(subjects),
				Body:        s.pick(bodies),
				Direction:   models.DirectionReceived,
				RiskScore:   score,
				ThreatLevel: risk.Classify(score),
				RiskFactors: models.RiskFactors{
					Content:    score * 0.3,
					Attachment: score * 0.4,
					Links:      score * 0.2,
					Context:    score * 0.1,
				},
				Analysis:         analysis,
				Suggestions:      suggestions,
				ProcessingStatus: workflow.InitialStatus(models.DirectionReceived, score),
				Timestamp:        s.ago(receivedWindow),
			})
		}

		for i := 0; i < SentPerUser; i++ {
			emails = append(emails, models.Email{
				ID:               nextID(),
				Sender:           user.Email,
				Recipient:        s.pick(senders),
				Subject:          "RE: " + s.pick(subjects),
				Body:             sentBody,
				Direction:        models.DirectionSent,
				RiskScore:        sentScore,
				ThreatLevel:      risk.Classify(sentScore),
				RiskFactors:      models.RiskFactors{Content: 2, Attachment: 0, Links: 3, Context: 0},
				Analysis:         sentAnalysis,
				Suggestions:      []string{},
				ProcessingStatus: workflow.InitialStatus(models.DirectionSent, sentScore),
				Timestamp:        s.ago(sentWindow),
			})
		}
	}

	return emails
}

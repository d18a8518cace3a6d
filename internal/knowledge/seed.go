package knowledge

import "time"

// SeedDocuments returns the starter HR policy corpus loaded by `hrdesk seed`.
// Real deployments replace these through the documents API.
func SeedDocuments() []Document {
	now := time.Now().UTC()
	docs := []Document{
		{
			ID:      "pto-policy",
			Title:   "Paid Time Off Policy",
			Topic:   "leave",
			Content: "Full-time employees accrue 1.67 days of paid time off per month, 20 days per year. PTO requests go through the HR portal and need manager approval at least two weeks in advance for absences longer than three days. Unused PTO rolls over up to a cap of 10 days; days beyond the cap are forfeited on January 1st.",
			Source:  "handbook/pto-policy",
		},
		{
			ID:      "sick-leave",
			Title:   "Sick Leave Policy",
			Topic:   "leave",
			Content: "Employees receive 10 paid sick days per year, available from the first day of employment. Sick leave does not roll over and is separate from PTO. A doctor's note is required for absences longer than three consecutive days. Unused sick days are not paid out on departure.",
			Source:  "handbook/sick-leave",
		},
		{
			ID:      "parental-leave",
			Title:   "Parental Leave Policy",
			Topic:   "leave",
			Content: "Primary caregivers receive 16 weeks of fully paid parental leave; secondary caregivers receive 6 weeks. Leave may be taken within 12 months of birth or adoption and may be split into at most two blocks. Employees should notify HR at least 30 days before the expected start.",
			Source:  "handbook/parental-leave",
		},
		{
			ID:      "health-insurance",
			Title:   "Health Insurance Benefits",
			Topic:   "benefits",
			Content: "The company covers 90% of medical premiums and 75% for dependents on the standard plan. Open enrollment runs every November. Qualifying life events allow plan changes within 30 days. Dental and vision ride on the same enrollment windows.",
			Source:  "handbook/health-insurance",
		},
		{
			ID:      "retirement-401k",
			Title:   "401(k) Retirement Plan",
			Topic:   "benefits",
			Content: "Employees may contribute to the 401(k) plan from their first paycheck. The company matches 100% of the first 4% of salary contributed. Matching contributions vest immediately. Plan changes can be made at any time through the benefits portal.",
			Source:  "handbook/retirement-401k",
		},
		{
			ID:      "remote-work",
			Title:   "Remote Work Policy",
			Topic:   "workplace",
			Content: "The company operates hybrid-first: employees may work remotely up to three days per week, with team anchor days set by each manager. Fully remote arrangements require VP approval and a compliant home-office setup. Remote employees must overlap at least four hours with their team's core hours.",
			Source:  "handbook/remote-work",
		},
		{
			ID:      "expenses",
			Title:   "Expense Reimbursement",
			Topic:   "workplace",
			Content: "Business expenses are reimbursed through the finance portal within 30 days of submission. Receipts are required for any expense above $25. Travel must be booked through the corporate tool; meals on travel days are covered up to $75 per day.",
			Source:  "handbook/expenses",
		},
		{
			ID:      "performance-reviews",
			Title:   "Performance Review Cycle",
			Topic:   "career",
			Content: "Performance reviews run twice a year, in April and October. Each cycle includes a self-review, peer feedback, and a manager assessment. Promotion packets are submitted during the April cycle. Ratings feed the annual compensation review in December.",
			Source:  "handbook/performance-reviews",
		},
		{
			ID:      "holidays",
			Title:   "Company Holidays",
			Topic:   "leave",
			Content: "The company observes 11 public holidays per year plus a company-wide winter shutdown between December 25 and January 1. Employees required to work a holiday receive a substitute day off within the same quarter.",
			Source:  "handbook/holidays",
		},
		{
			ID:      "onboarding",
			Title:   "New Hire Onboarding",
			Topic:   "career",
			Content: "New hires complete onboarding during their first two weeks: equipment setup on day one, benefits enrollment within 14 days, security training within 30 days. Each new hire is paired with an onboarding buddy from their team.",
			Source:  "handbook/onboarding",
		},
	}
	for i := range docs {
		docs[i].UpdatedAt = now
	}
	return docs
}

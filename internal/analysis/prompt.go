package analysis

import (
	"fmt"
	"strconv"
	"strings"
)

// SystemPrompt is sent as the system instruction on every call.
const SystemPrompt = "You are a professional auditor performing financial truth reconciliation. " +
	"Be concise, clinical, and evidence-driven."

const reconcileRules = `Rules:
1. Do not give tax advice.
2. Do not assume intent.
3. Use neutral, department-safe language.
4. If evidence is insufficient to verify the full amount, state it explicitly and mark as UNEXPLAINED.
5. If there is a timing mismatch (e.g. entry is in FY24 but income received in FY23), mark as EXPLAINABLE.
6. If amounts match exactly, mark as VERIFIED.
7. If evidence contradicts the reported amount in a way that suggests under-reporting, mark as RISK_FLAG.
8. Reference evidence IDs in square brackets, e.g. [EVID-001], in your explanation.`

// jsonContract describes the response shape for providers without a
// structured-output schema.
const jsonContract = `Respond with a single JSON object and nothing else:
{"status": "VERIFIED|EXPLAINABLE|UNEXPLAINED|RISK_FLAG", "explanation": string, "confidenceScore": number between 0 and 1, "evidenceIds": [string], "suggestedActualAmount": number (optional, only if evidence shows a different amount)}`

// BuildPrompt renders the user prompt for one entry.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Role: Senior Financial Reconciliation Analyst.\n")
	b.WriteString("Task: Reconcile an AIS (Annual Information Statement) entry with the provided evidence metadata and content.\n\n")

	b.WriteString("AIS Entry Details:\n")
	fmt.Fprintf(&b, "- ID: %s\n", req.Entry.ID)
	fmt.Fprintf(&b, "- Section: %s\n", req.Entry.Section)
	fmt.Fprintf(&b, "- Description: %s\n", req.Entry.Description)
	fmt.Fprintf(&b, "- Reported Amount: %s\n", strconv.FormatFloat(req.Entry.ReportedAmount, 'f', -1, 64))
	fmt.Fprintf(&b, "- Reporting Entity: %s\n", req.Entry.ReportingEntity)
	if req.Entry.FinancialYear != "" {
		fmt.Fprintf(&b, "- Financial Year: %s\n", req.Entry.FinancialYear)
	}

	b.WriteString("\nEvidence Available:\n")
	if len(req.Evidence) == 0 {
		b.WriteString("(none)\n")
	}
	for _, ev := range req.Evidence {
		fmt.Fprintf(&b, "- [%s] %s: %s\n", ev.ID, ev.Name, ev.Text)
	}

	b.WriteString("\n")
	b.WriteString(reconcileRules)
	return b.String()
}

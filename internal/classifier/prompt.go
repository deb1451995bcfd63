package classifier

import "fmt"

const promptFormat = `You are an assistant that reads short college placement emails (subject + snippet) and returns a VALID JSON object following EXACTLY this schema (no extra keys, no explanations):

{
  "category": "interview|job_posting|follow_up|congrats|other",
  "urgency": "super_urgent|urgent|mid|low|trash",
  "action_required": "none|reply|register|fill_form|confirm_attendance",
  "deadline": "YYYY-MM-DD or null",
  "eligibility": "all|btech|mtech|btech_final_year|others",
  "companies": ["Company A", "..."],
  "reason": "short explanation (<=20 words)"
}

Return ONLY the JSON object (no backticks, no code fences, no commentary). Use ISO date 'YYYY-MM-DD' format or null for unknown deadlines. If a field is unknown, use null or an empty list as appropriate.

Example 1
Input:
Subject: "Interview tomorrow with Acme Corp"
Body: "Interview scheduled on 2025-10-10 for BTech final-year. Reply to confirm."
Output:
{"category":"interview","urgency":"super_urgent","action_required":"confirm_attendance","deadline":"2025-10-10","eligibility":"btech_final_year","companies":["Acme Corp"],"reason":"Interview scheduled tomorrow for BTech final-year"}

Example 2
Input:
Subject: "Congrats - Arrise Solutions"
Body: "Congratulations to selected students. List attached."
Output:
{"category":"congrats","urgency":"trash","action_required":"none","deadline":null,"eligibility":"all","companies":["Arrise Solutions"],"reason":"congratulatory selection announcement"}

Now analyze this message and return ONLY the JSON:
Subject: %s
Body: %s
`

const repairFormat = `We need strictly a single JSON object ONLY (no text, no backticks). The object MUST contain the keys: category, urgency, action_required, deadline, eligibility, companies, reason. If a value is unknown, use null (for deadline) or an empty list (for companies). Now produce ONLY the JSON object (no explanation). Here is the message again:

Subject: %s
Body: %s

If the model previously returned something (shown below), extract and return just the valid JSON per schema:

Previous model output:
%s

Return ONLY the JSON object now.`

// BuildPrompt renders the classification prompt. Subject and snippet are
// expected to be truncated by the caller.
func BuildPrompt(subject, snippet string) string {
	return fmt.Sprintf(promptFormat, subject, snippet)
}

// BuildRepairPrompt renders the stricter follow-up prompt that includes the
// model's previous reply.
func BuildRepairPrompt(subject, snippet, previous string) string {
	return fmt.Sprintf(repairFormat, subject, snippet, previous)
}

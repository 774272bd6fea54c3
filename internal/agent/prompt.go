package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/feldsher/feldsher/internal/toolreg"
)

const patientPrompt = `You are a helpful medical appointment assistant for a clinic.
You help patients check doctor availability, book appointments, cancel them, and answer questions about the clinic.

Rules:
- Always confirm doctor, date, and time before booking.
- Collect the patient's full name and email before booking an appointment.
- Never invent doctors or time slots; use the tools to look them up.
- Resolve relative dates like "today" or "tomorrow" against the reference dates below.
- Stay on the topic of clinic appointments; politely decline unrelated requests.
- Do not give medical diagnoses; suggest booking with an appropriate specialist instead.`

const doctorPrompt = `You are a clinical operations assistant for the doctors of a clinic.
Besides the patient-facing scheduling tools you can produce appointment and patient statistics, generate summary reports, send notifications to Slack and Telegram, and manage patient visit records and prescriptions.

Rules:
- Resolve relative dates like "today" or "yesterday" against the reference dates below.
- When asked for a report without a period, default to daily.
- Patient history and visit records are confidential; only discuss them with the doctor.
- Never invent statistics; use the tools to compute them.`

const suggestionInstruction = `After your reply, append one line in exactly this format:
[SUGGESTIONS: first follow-up | second follow-up | third follow-up]
with up to three short actions the user is likely to want next. Omit the line when no follow-up makes sense.`

// Compose renders the role's system turn. It is pure given its inputs; all
// date anchors derive from the passed now, never the wall clock.
func Compose(role toolreg.Role, callerContext string, now time.Time) string {
	var b strings.Builder
	if role == toolreg.RoleDoctor {
		b.WriteString(doctorPrompt)
	} else {
		b.WriteString(patientPrompt)
	}

	fmt.Fprintf(&b, "\n\nReference dates:\n- today: %s (%s)\n- tomorrow: %s\n- yesterday: %s\n",
		now.Format("2006-01-02"), now.Weekday(),
		now.AddDate(0, 0, 1).Format("2006-01-02"),
		now.AddDate(0, 0, -1).Format("2006-01-02"))
	fmt.Fprintf(&b, "Current time: %s\n", now.Format("15:04"))

	if callerContext != "" {
		fmt.Fprintf(&b, "\nCaller context: %s\n", callerContext)
	}

	b.WriteString("\n")
	b.WriteString(suggestionInstruction)
	return b.String()
}

package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/feldsher/feldsher/internal/clinic"
	"github.com/feldsher/feldsher/internal/toolreg"
)

func registerDoctorTools(reg *toolreg.Registry, deps *Deps) {
	reportPeriod := toolreg.Param{
		Name: "report_type", Type: "string",
		Description: "Aggregation window",
		Enum:        []string{"daily", "weekly", "monthly"},
	}

	reg.MustRegister(&toolreg.Definition{
		Name:        "get_appointment_stats",
		Description: "Appointment counts by status and doctor over a period.",
		Params: []toolreg.Param{
			{Name: "doctor_id", Type: "integer", Description: "Limit to one doctor"},
			reportPeriod,
		},
		Roles:   doctorOnly,
		Handler: deps.appointmentStats,
	})

	reg.MustRegister(&toolreg.Definition{
		Name:        "get_patient_stats",
		Description: "Distinct patient counts over a period, including how many reported symptoms.",
		Params: []toolreg.Param{
			{Name: "doctor_id", Type: "integer", Description: "Limit to one doctor"},
			reportPeriod,
		},
		Roles:   doctorOnly,
		Handler: deps.patientStats,
	})

	reg.MustRegister(&toolreg.Definition{
		Name:        "generate_summary_report",
		Description: "Generate a plain-text summary report of clinic activity over a period.",
		Params: []toolreg.Param{
			{Name: "doctor_id", Type: "integer", Description: "Limit to one doctor"},
			reportPeriod,
		},
		Roles:   doctorOnly,
		Handler: deps.summaryReport,
	})

	reg.MustRegister(&toolreg.Definition{
		Name:        "send_slack_notification",
		Description: "Send a message to the clinic Slack channel.",
		Params: []toolreg.Param{
			{Name: "message", Type: "string", Description: "Message text", Required: true},
		},
		Roles:   doctorOnly,
		Handler: deps.sendSlack,
	})

	reg.MustRegister(&toolreg.Definition{
		Name:        "send_report_to_telegram",
		Description: "Generate a summary report for a period and send it to the clinic Telegram chat.",
		Params: []toolreg.Param{
			{Name: "doctor_id", Type: "integer", Description: "Limit to one doctor"},
			reportPeriod,
		},
		Roles:   doctorOnly,
		Handler: deps.sendReportTelegram,
	})

	reg.MustRegister(&toolreg.Definition{
		Name:        "get_patient_history",
		Description: "Retrieve a patient's visit history by email, most recent first.",
		Params: []toolreg.Param{
			{Name: "patient_email", Type: "string", Description: "Patient email", Required: true},
		},
		Roles:   doctorOnly,
		Handler: deps.patientHistory,
	})

	reg.MustRegister(&toolreg.Definition{
		Name:        "add_visit_notes",
		Description: "Record a patient visit with symptoms, diagnosis, and notes.",
		Params: []toolreg.Param{
			{Name: "doctor_id", Type: "integer", Description: "Attending doctor id", Required: true},
			{Name: "patient_name", Type: "string", Description: "Patient full name", Required: true},
			{Name: "patient_email", Type: "string", Description: "Patient email", Required: true},
			{Name: "visit_date", Type: "string", Description: "Visit date, YYYY-MM-DD; defaults to today"},
			{Name: "symptoms", Type: "string", Description: "Observed symptoms"},
			{Name: "diagnosis", Type: "string", Description: "Diagnosis"},
			{Name: "notes", Type: "string", Description: "Free-form visit notes"},
		},
		Roles:   doctorOnly,
		Handler: deps.addVisitNotes,
	})

	reg.MustRegister(&toolreg.Definition{
		Name:        "add_prescription",
		Description: "Attach a prescription to an existing visit record.",
		Params: []toolreg.Param{
			{Name: "visit_id", Type: "integer", Description: "Visit id", Required: true},
			{Name: "prescription", Type: "string", Description: "Prescription text", Required: true},
		},
		Roles:   doctorOnly,
		Handler: deps.addPrescription,
	})
}

// periodBounds converts a report_type into a [from, today] date window.
func (d *Deps) periodBounds(args map[string]any) (from, to, label string) {
	now := d.now()
	to = now.Format("2006-01-02")
	label = argString(args, "report_type")
	switch label {
	case "weekly":
		from = now.AddDate(0, 0, -7).Format("2006-01-02")
	case "monthly":
		from = now.AddDate(0, -1, 0).Format("2006-01-02")
	default:
		label = "daily"
		from = to
	}
	return from, to, label
}

func (d *Deps) appointmentStats(ctx context.Context, args map[string]any) (map[string]any, error) {
	from, to, label := d.periodBounds(args)
	doctorID, _ := argInt64(args, "doctor_id")
	st, err := d.Clinic.AppointmentStats(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"report_type": label,
		"from":        from,
		"to":          to,
		"total":       st.Total,
		"by_status":   st.ByStatus,
		"by_doctor":   st.ByDoctor,
	}, nil
}

func (d *Deps) patientStats(ctx context.Context, args map[string]any) (map[string]any, error) {
	from, to, label := d.periodBounds(args)
	doctorID, _ := argInt64(args, "doctor_id")
	st, err := d.Clinic.PatientStatsFor(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"report_type":   label,
		"from":          from,
		"to":            to,
		"patients":      st.Patients,
		"with_symptoms": st.WithSymptoms,
		"appointments":  st.Appointments,
	}, nil
}

// BuildReport renders the plain-text summary used by the report tools and
// the daily scheduler.
func (d *Deps) BuildReport(ctx context.Context, doctorID int64, from, to, label string) (string, error) {
	appts, err := d.Clinic.AppointmentStats(ctx, doctorID, from, to)
	if err != nil {
		return "", err
	}
	patients, err := d.Clinic.PatientStatsFor(ctx, doctorID, from, to)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Clinic %s report (%s to %s)\n\n", label, from, to)
	fmt.Fprintf(&b, "Appointments: %d\n", appts.Total)
	for status, n := range appts.ByStatus {
		fmt.Fprintf(&b, "  %s: %d\n", status, n)
	}
	fmt.Fprintf(&b, "\nPatients seen: %d (%d with reported symptoms)\n", patients.Patients, patients.WithSymptoms)
	if len(appts.ByDoctor) > 0 {
		b.WriteString("\nBy doctor:\n")
		for doctor, n := range appts.ByDoctor {
			fmt.Fprintf(&b, "  %s: %d\n", doctor, n)
		}
	}
	return b.String(), nil
}

func (d *Deps) summaryReport(ctx context.Context, args map[string]any) (map[string]any, error) {
	from, to, label := d.periodBounds(args)
	doctorID, _ := argInt64(args, "doctor_id")
	report, err := d.BuildReport(ctx, doctorID, from, to, label)
	if err != nil {
		return nil, err
	}
	return map[string]any{"report_type": label, "report": report}, nil
}

func (d *Deps) sendSlack(ctx context.Context, args map[string]any) (map[string]any, error) {
	msg := argString(args, "message")
	if msg == "" {
		return nil, errors.New("message is required")
	}
	if err := d.Slack.Send(ctx, msg); err != nil {
		return nil, err
	}
	return map[string]any{"sent": true, "channel": "slack"}, nil
}

func (d *Deps) sendReportTelegram(ctx context.Context, args map[string]any) (map[string]any, error) {
	from, to, label := d.periodBounds(args)
	doctorID, _ := argInt64(args, "doctor_id")
	report, err := d.BuildReport(ctx, doctorID, from, to, label)
	if err != nil {
		return nil, err
	}
	if err := d.Telegram.Send(ctx, report); err != nil {
		return nil, err
	}
	return map[string]any{"sent": true, "channel": "telegram", "report_type": label}, nil
}

func (d *Deps) patientHistory(ctx context.Context, args map[string]any) (map[string]any, error) {
	email := argString(args, "patient_email")
	if email == "" {
		return nil, errors.New("patient_email is required")
	}
	visits, err := d.Clinic.PatientHistory(ctx, email)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(visits))
	for _, v := range visits {
		items = append(items, map[string]any{
			"visit_id":     v.ID,
			"doctor_id":    v.DoctorID,
			"visit_date":   v.VisitDate,
			"symptoms":     v.Symptoms,
			"diagnosis":    v.Diagnosis,
			"notes":        v.Notes,
			"prescription": v.Prescription,
		})
	}
	return map[string]any{"patient_email": email, "count": len(items), "visits": items}, nil
}

func (d *Deps) addVisitNotes(ctx context.Context, args map[string]any) (map[string]any, error) {
	doctorID, ok := argInt64(args, "doctor_id")
	if !ok {
		return nil, errors.New("doctor_id is required")
	}
	v := clinic.Visit{
		DoctorID:     doctorID,
		PatientName:  argString(args, "patient_name"),
		PatientEmail: argString(args, "patient_email"),
		VisitDate:    argString(args, "visit_date"),
		Symptoms:     argString(args, "symptoms"),
		Diagnosis:    argString(args, "diagnosis"),
		Notes:        argString(args, "notes"),
	}
	if v.PatientName == "" || v.PatientEmail == "" {
		return nil, errors.New("patient_name and patient_email are required")
	}
	if v.VisitDate == "" {
		v.VisitDate = d.now().Format("2006-01-02")
	}
	id, err := d.Clinic.AddVisit(ctx, v)
	if err != nil {
		return nil, err
	}
	return map[string]any{"visit_id": id, "message": fmt.Sprintf("Visit recorded for %s", v.PatientName)}, nil
}

func (d *Deps) addPrescription(ctx context.Context, args map[string]any) (map[string]any, error) {
	visitID, ok := argInt64(args, "visit_id")
	if !ok {
		return nil, errors.New("visit_id is required")
	}
	prescription := argString(args, "prescription")
	if prescription == "" {
		return nil, errors.New("prescription is required")
	}
	if err := d.Clinic.SetPrescription(ctx, visitID, prescription); err != nil {
		return nil, err
	}
	return map[string]any{"visit_id": visitID, "message": "Prescription added"}, nil
}

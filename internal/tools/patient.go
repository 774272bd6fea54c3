package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/feldsher/feldsher/internal/clinic"
	"github.com/feldsher/feldsher/internal/notify"
	"github.com/feldsher/feldsher/internal/toolreg"
)

func registerPatientTools(reg *toolreg.Registry, deps *Deps) {
	reg.MustRegister(&toolreg.Definition{
		Name:        "check_availability",
		Description: "Check available appointment slots for doctors on a given date. Optionally filter by doctor id or specialization.",
		Params: []toolreg.Param{
			{Name: "date", Type: "string", Description: "Date in YYYY-MM-DD format", Required: true},
			{Name: "doctor_id", Type: "integer", Description: "Doctor id to check"},
			{Name: "specialization", Type: "string", Description: "Filter doctors by specialization"},
		},
		Roles:   bothRoles,
		Handler: deps.checkAvailability,
	})

	reg.MustRegister(&toolreg.Definition{
		Name:        "book_appointment",
		Description: "Book an appointment with a doctor. A confirmation email is sent to the patient.",
		Params: []toolreg.Param{
			{Name: "doctor_id", Type: "integer", Description: "Doctor id", Required: true},
			{Name: "patient_name", Type: "string", Description: "Patient full name", Required: true},
			{Name: "patient_email", Type: "string", Description: "Patient email for confirmation", Required: true},
			{Name: "date", Type: "string", Description: "Date in YYYY-MM-DD format", Required: true},
			{Name: "time", Type: "string", Description: "Time in HH:MM format", Required: true},
			{Name: "reason", Type: "string", Description: "Reason for the visit"},
			{Name: "symptoms", Type: "string", Description: "Symptoms the patient reports"},
		},
		Roles:   bothRoles,
		Handler: deps.bookAppointment,
	})

	reg.MustRegister(&toolreg.Definition{
		Name:        "cancel_appointment",
		Description: "Cancel a confirmed appointment by its id.",
		Params: []toolreg.Param{
			{Name: "appointment_id", Type: "integer", Description: "Appointment id to cancel", Required: true},
		},
		Roles:   bothRoles,
		Handler: deps.cancelAppointment,
	})

	reg.MustRegister(&toolreg.Definition{
		Name:        "list_appointments",
		Description: "List appointments, optionally filtered by patient email, doctor id, date, or status.",
		Params: []toolreg.Param{
			{Name: "patient_email", Type: "string", Description: "Filter by patient email"},
			{Name: "doctor_id", Type: "integer", Description: "Filter by doctor id"},
			{Name: "date", Type: "string", Description: "Filter by date, YYYY-MM-DD"},
			{Name: "status", Type: "string", Description: "Filter by status", Enum: []string{clinic.StatusConfirmed, clinic.StatusCancelled, clinic.StatusCompleted}},
		},
		Roles:   bothRoles,
		Handler: deps.listAppointments,
	})

	reg.MustRegister(&toolreg.Definition{
		Name:        "list_doctors",
		Description: "List all doctors with their specialization and working hours.",
		Params: []toolreg.Param{
			{Name: "specialization", Type: "string", Description: "Filter by specialization"},
		},
		Roles:   bothRoles,
		Handler: deps.listDoctors,
	})
}

func (d *Deps) checkAvailability(ctx context.Context, args map[string]any) (map[string]any, error) {
	date := argString(args, "date")
	if date == "" {
		return nil, errors.New("date is required")
	}

	var docs []clinic.Doctor
	if id, ok := argInt64(args, "doctor_id"); ok && id != 0 {
		doc, err := d.Clinic.DoctorByID(ctx, id)
		if err != nil {
			return nil, err
		}
		docs = []clinic.Doctor{*doc}
	} else {
		var err error
		docs, err = d.Clinic.Doctors(ctx, argString(args, "specialization"))
		if err != nil {
			return nil, err
		}
	}

	availability := make([]map[string]any, 0, len(docs))
	for i := range docs {
		free, err := d.Clinic.FreeSlots(ctx, &docs[i], date)
		if err != nil {
			return nil, err
		}
		availability = append(availability, map[string]any{
			"doctor_id":       docs[i].ID,
			"doctor_name":     docs[i].Name,
			"specialization":  docs[i].Specialization,
			"available_slots": free,
		})
	}
	return map[string]any{"date": date, "availability": availability}, nil
}

func (d *Deps) bookAppointment(ctx context.Context, args map[string]any) (map[string]any, error) {
	doctorID, ok := argInt64(args, "doctor_id")
	if !ok {
		return nil, errors.New("doctor_id is required")
	}
	req := clinic.BookingRequest{
		DoctorID:     doctorID,
		PatientName:  argString(args, "patient_name"),
		PatientEmail: argString(args, "patient_email"),
		Date:         argString(args, "date"),
		Time:         argString(args, "time"),
		Reason:       argString(args, "reason"),
		Symptoms:     argString(args, "symptoms"),
	}
	if req.PatientName == "" || req.PatientEmail == "" || req.Date == "" || req.Time == "" {
		return nil, errors.New("patient_name, patient_email, date and time are required")
	}

	appt, err := d.Clinic.Book(ctx, req, d.now())
	if err != nil {
		return nil, err
	}

	// Confirmation delivery must not fail the booking.
	subject := fmt.Sprintf("Appointment confirmed with %s", appt.DoctorName)
	body := fmt.Sprintf("Dear %s,\n\nYour appointment is confirmed.\n\nDoctor: %s\nDate: %s\nTime: %s\nReason: %s\n\nAppointment ID: %d",
		appt.PatientName, appt.DoctorName, appt.Date, appt.Time, appt.Reason, appt.ID)
	if err := d.Mailer.Send(ctx, appt.PatientEmail, subject, body); err != nil && !errors.Is(err, notify.ErrChannelDisabled) {
		slog.Warn("confirmation email failed", slog.Int64("appointment", appt.ID), slog.Any("error", err))
	}

	return map[string]any{
		"appointment_id": appt.ID,
		"doctor_name":    appt.DoctorName,
		"date":           appt.Date,
		"time":           appt.Time,
		"status":         appt.Status,
		"message":        fmt.Sprintf("Appointment booked with %s on %s at %s", appt.DoctorName, appt.Date, appt.Time),
	}, nil
}

func (d *Deps) cancelAppointment(ctx context.Context, args map[string]any) (map[string]any, error) {
	id, ok := argInt64(args, "appointment_id")
	if !ok {
		return nil, errors.New("appointment_id is required")
	}
	if err := d.Clinic.Cancel(ctx, id); err != nil {
		return nil, err
	}
	return map[string]any{
		"appointment_id": id,
		"status":         clinic.StatusCancelled,
		"message":        fmt.Sprintf("Appointment %d has been cancelled", id),
	}, nil
}

func (d *Deps) listAppointments(ctx context.Context, args map[string]any) (map[string]any, error) {
	f := clinic.AppointmentFilter{
		PatientEmail: argString(args, "patient_email"),
		Date:         argString(args, "date"),
		Status:       argString(args, "status"),
	}
	if id, ok := argInt64(args, "doctor_id"); ok {
		f.DoctorID = id
	}
	appts, err := d.Clinic.Appointments(ctx, f)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(appts))
	for _, a := range appts {
		items = append(items, map[string]any{
			"appointment_id": a.ID,
			"doctor_name":    a.DoctorName,
			"patient_name":   a.PatientName,
			"date":           a.Date,
			"time":           a.Time,
			"reason":         a.Reason,
			"status":         a.Status,
		})
	}
	return map[string]any{"count": len(items), "appointments": items}, nil
}

func (d *Deps) listDoctors(ctx context.Context, args map[string]any) (map[string]any, error) {
	docs, err := d.Clinic.Doctors(ctx, argString(args, "specialization"))
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		items = append(items, map[string]any{
			"doctor_id":      doc.ID,
			"name":           doc.Name,
			"specialization": doc.Specialization,
			"working_hours":  doc.AvailableFrom + " - " + doc.AvailableTo,
		})
	}
	return map[string]any{"count": len(items), "doctors": items}, nil
}

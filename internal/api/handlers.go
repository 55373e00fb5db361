package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-scheduling/internal/apperr"
	"github.com/hackgods/clinic-scheduling/internal/appointment"
)

func createAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := IdentityFrom(r.Context())

		var req CreateAppointmentRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		doctorID := uuid.Nil
		if req.DoctorID != "" {
			id, err := uuid.Parse(req.DoctorID)
			if err != nil {
				writeError(w, r, apperr.Invalid("doctorId must be a valid UUID"))
				return
			}
			doctorID = id
		}

		appt, err := svc.CreateAppointment(r.Context(), actor, doctorID, req.When)
		warnings, err := warningsFor(err)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, AppointmentResponse{Appointment: appt, Warnings: warnings})
	}
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := IdentityFrom(r.Context())

		id, err := uuidParam(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		appt, err := svc.GetAppointment(r.Context(), actor, id)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, AppointmentResponse{Appointment: appt})
	}
}

func updateAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := IdentityFrom(r.Context())

		id, err := uuidParam(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		var patch appointment.Patch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, r, err)
			return
		}

		appt, err := svc.UpdateAppointment(r.Context(), actor, id, patch)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, AppointmentResponse{Appointment: appt})
	}
}

func deleteAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := IdentityFrom(r.Context())

		id, err := uuidParam(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		warnings, err := warningsFor(svc.DeleteAppointment(r.Context(), actor, id))
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, DeleteResponse{ID: id, Deleted: true, Warnings: warnings})
	}
}

func reserveAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := IdentityFrom(r.Context())

		id, err := uuidParam(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		appt, err := svc.Reserve(r.Context(), actor, id)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, AppointmentResponse{Appointment: appt})
	}
}

func cancelAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := IdentityFrom(r.Context())

		id, err := uuidParam(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		appt, err := svc.Cancel(r.Context(), actor, id)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, AppointmentResponse{Appointment: appt})
	}
}

func listByDoctorHandler(svc AppointmentService, maxLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := IdentityFrom(r.Context())

		doctorID, err := uuidParam(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		page, err := svc.ListByDoctor(r.Context(), actor, doctorID, pageParams(r, maxLimit))
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, page)
	}
}

func listMineHandler(svc AppointmentService, maxLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := IdentityFrom(r.Context())

		page, err := svc.ListByPatient(r.Context(), actor, pageParams(r, maxLimit))
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, page)
	}
}

// listCanceledHandler serves the caller's own canceled appointments, or for
// admins those of ?patientId=.
func listCanceledHandler(svc AppointmentService, maxLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := IdentityFrom(r.Context())

		patientID := uuid.Nil
		if raw := r.URL.Query().Get("patientId"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, r, apperr.Invalid("patientId must be a valid UUID"))
				return
			}
			patientID = id
		}

		page, err := svc.ListCanceledByPatient(r.Context(), actor, patientID, pageParams(r, maxLimit))
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, page)
	}
}

package api

import (
	"net/http"

	"github.com/hackgods/clinic-scheduling/internal/pagination"
	"github.com/hackgods/clinic-scheduling/internal/registry"
)

func createSpecialtyHandler(svc RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSpecialtyRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		sp, err := svc.CreateSpecialty(r.Context(), req.Name, req.Description)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, sp)
	}
}

func listSpecialtiesHandler(svc RegistryService, maxLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := pageParams(r, maxLimit)

		items, err := svc.ListSpecialties(r.Context(), p)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, pagination.NewPage(items, p))
	}
}

func createDoctorHandler(svc RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDoctorRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		d, err := svc.CreateDoctor(r.Context(), req.Name, req.Specialty)
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, d)
	}
}

func updateDoctorHandler(svc RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		var req UpdateDoctorRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		d, err := svc.UpdateDoctor(r.Context(), id, registry.DoctorPatch{Name: req.Name, Specialty: req.Specialty})
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, d)
	}
}

func listDoctorsHandler(svc RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.ListDoctors(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, doctors)
	}
}

// getDoctorHandler returns the doctor with a page of its available slots.
func getDoctorHandler(svc RegistryService, appts AppointmentService, maxLimit int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}

		d, err := svc.GetDoctor(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}

		available, err := appts.AvailableByDoctor(r.Context(), id, pageParams(r, maxLimit))
		if err != nil {
			writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, DoctorDetailResponse{Doctor: d, Available: available})
	}
}

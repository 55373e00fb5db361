package appointment

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Optional tells an absent JSON field apart from one present with a zero or
// null value.
type Optional[T any] struct {
	Set   bool
	Value T
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Set: true, Value: v}
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		var zero T
		o.Value = zero
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// Patch is the admin override over an appointment. Only fields with Set are
// applied. A null patientId clears the patient.
type Patch struct {
	When      Optional[string]     `json:"when"`
	Status    Optional[string]     `json:"status"`
	PatientID Optional[*uuid.UUID] `json:"patientId"`
}

func (p Patch) Empty() bool {
	return !p.When.Set && !p.Status.Set && !p.PatientID.Set
}

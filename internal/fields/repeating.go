package fields

import (
	"strconv"
	"strings"

	"github.com/Lllllllleong/incidentreportflow/internal/models"
)

// WitnessValues maps the n-th witness (1-based) onto the witness page of the
// repeating template.
func WitnessValues(n int, w models.Witness) Values {
	out := make(Values, 6)
	out.SetText("witness_number", strconv.Itoa(n))
	out.SetText("witness_name", strings.TrimSpace(w.Name))
	out.SetText("witness_phone", strings.TrimSpace(w.Phone))
	out.SetText("witness_email", strings.TrimSpace(w.Email))
	out.SetText("witness_address", strings.TrimSpace(w.Address))
	out.SetText("witness_statement", strings.TrimSpace(w.Statement))
	return out
}

// VehicleValues maps the n-th other vehicle (1-based) onto the vehicle page of
// the repeating template.
func VehicleValues(n int, v models.OtherVehicle) Values {
	out := make(Values, 12)
	out.SetText("vehicle_number", strconv.Itoa(n))
	out.SetText("other_driver_name", strings.TrimSpace(v.DriverName))
	out.SetText("other_driver_phone", strings.TrimSpace(v.DriverPhone))
	out.SetText("other_driver_address", strings.TrimSpace(v.DriverAddress))
	out.SetText("other_vehicle_make", strings.TrimSpace(v.Make))
	out.SetText("other_vehicle_model", strings.TrimSpace(v.Model))
	out.SetText("other_vehicle_colour", strings.TrimSpace(v.Colour))
	out.SetText("other_vehicle_registration", strings.TrimSpace(v.Registration))
	out.SetText("other_insurance_company", strings.TrimSpace(v.InsuranceCompany))
	out.SetText("other_policy_number", strings.TrimSpace(v.PolicyNumber))
	out.SetText("other_policy_holder", strings.TrimSpace(v.PolicyHolder))
	out.SetText("other_damage_description", strings.TrimSpace(v.DamageDescription))
	return out
}

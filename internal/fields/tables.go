package fields

import "github.com/Lllllllleong/incidentreportflow/internal/models"

// Field tables for the main report template. Names on the left of every
// binding are logical; PDFName resolves them through Aliases.

// Aliases maps logical field names to the name the template actually uses.
// Entries exist because of authoring typos, hyphen/underscore drift and
// renames between template revisions.
var Aliases = map[string]string{
	"airbags_deployed_no":           "airbags_deployed_No",
	"dashcam_footage_no":            "dash_cam_footage_v2_no",
	"dashcam_footage_yes":           "dash_cam_footage_v2_yes",
	"driver_driving_license_number": "Drivers_Licence_Number",
	"file_url_driving_license":      "file_url_driving_licence",
	"impact_front_nearside":         "impact_front_near_side",
	"insurance_policy_number":       "insurance_policy_no",
	"medical_attention_no":          "recieved_medical_attention_no",
	"medical_attention_yes":         "recieved_medical_attention_yes",
	"police_attended_yes":           "polcie_attended_yes",
	"recovery_company":              "recovery_company_name",
	"road_icy":                      "road_condtion_icy",
	"vehicle_make":                  "vehicle-make",
	"vehicle_registration":          "vehicle-registration",
	"weather_drizzle":               "weather_drizzel",
	"weather_thunder_lightning":     "weather_thunder",
	"what3words":                    "what_3_words",
}

// onTokenFields lists the checkboxes whose widgets were authored with the
// export value "On". Every other checkbox exports "Yes". Keyed by PDF name.
var onTokenFields = map[string]struct{}{
	"dash_cam_footage_v2_no":   {},
	"dash_cam_footage_v2_yes":  {},
	"declaration_true_account": {},
	"road_type_a_road":         {},
	"road_type_b_road":         {},
	"road_type_car_park":       {},
	"road_type_motorway":       {},
	"road_type_private":        {},
	"road_type_rural":          {},
	"road_type_urban":          {},
	"weather_bright_daylight":  {},
	"weather_clear":            {},
	"weather_cloudy":           {},
	"weather_dark":             {},
	"weather_drizzel":          {},
	"weather_dusk":             {},
	"weather_fog":              {},
	"weather_hail":             {},
	"weather_heavy_rain":       {},
	"weather_ice":              {},
	"weather_light_rain":       {},
	"weather_overcast":         {},
	"weather_snow":             {},
	"weather_street_lights":    {},
	"weather_sunny":            {},
	"weather_thunder":          {},
	"weather_windy":            {},
}

type textBinding struct {
	field string
	get   func(*models.DomainRecord) string
}

var userTextBindings = []textBinding{
	{"driver_full_name", func(r *models.DomainRecord) string { return r.User.FullName }},
	{"driver_date_of_birth", func(r *models.DomainRecord) string { return r.User.DateOfBirth }},
	{"driver_address", func(r *models.DomainRecord) string { return r.User.Address }},
	{"driver_town", func(r *models.DomainRecord) string { return r.User.Town }},
	{"driver_postcode", func(r *models.DomainRecord) string { return r.User.Postcode }},
	{"driver_country", func(r *models.DomainRecord) string { return r.User.Country }},
	{"driver_phone", func(r *models.DomainRecord) string { return r.User.Phone }},
	{"driver_email", func(r *models.DomainRecord) string { return r.User.Email }},
	{"driver_occupation", func(r *models.DomainRecord) string { return r.User.Occupation }},
	{"driver_driving_license_number", func(r *models.DomainRecord) string { return r.User.DrivingLicenseNumber }},
	{"driver_license_expiry", func(r *models.DomainRecord) string { return r.User.LicenseExpiry }},
	{"vehicle_make", func(r *models.DomainRecord) string { return r.User.VehicleMake }},
	{"vehicle_model", func(r *models.DomainRecord) string { return r.User.VehicleModel }},
	{"vehicle_colour", func(r *models.DomainRecord) string { return r.User.VehicleColour }},
	{"vehicle_registration", func(r *models.DomainRecord) string { return r.User.VehicleRegistration }},
	{"vehicle_year", func(r *models.DomainRecord) string { return r.User.VehicleYear }},
	{"vehicle_condition", func(r *models.DomainRecord) string { return r.User.VehicleCondition }},
	{"insurance_company", func(r *models.DomainRecord) string { return r.User.InsuranceCompany }},
	{"insurance_policy_number", func(r *models.DomainRecord) string { return r.User.PolicyNumber }},
	{"insurance_policy_holder", func(r *models.DomainRecord) string { return r.User.PolicyHolder }},
	{"insurance_cover_type", func(r *models.DomainRecord) string { return r.User.CoverType }},
}

var incidentTextBindings = []textBinding{
	{"incident_date", func(r *models.DomainRecord) string { return r.Incident.Date }},
	{"incident_time", func(r *models.DomainRecord) string { return r.Incident.Time }},
	{"incident_location", func(r *models.DomainRecord) string { return r.Incident.Location }},
	{"what3words", func(r *models.DomainRecord) string { return r.Incident.What3Words }},
	{"nearest_landmark", func(r *models.DomainRecord) string { return r.Incident.NearestLandmark }},
	{"road_type_description", func(r *models.DomainRecord) string { return r.Incident.RoadType }},
	{"speed_limit", func(r *models.DomainRecord) string { return r.Incident.SpeedLimit }},
	{"your_speed", func(r *models.DomainRecord) string { return r.Incident.YourSpeed }},
	{"direction_of_travel", func(r *models.DomainRecord) string { return r.Incident.Direction }},
	{"visibility", func(r *models.DomainRecord) string { return r.Incident.Visibility }},
	{"traffic_conditions", func(r *models.DomainRecord) string { return r.Incident.TrafficConditions }},
	{"incident_description", func(r *models.DomainRecord) string { return r.Incident.Description }},
	{"injury_description", func(r *models.DomainRecord) string { return r.Incident.InjuryDescription }},
	{"hospital_name", func(r *models.DomainRecord) string { return r.Incident.HospitalName }},
	{"ambulance_reference", func(r *models.DomainRecord) string { return r.Incident.AmbulanceReference }},
	{"police_officer_name", func(r *models.DomainRecord) string { return r.Incident.PoliceOfficerName }},
	{"police_badge_number", func(r *models.DomainRecord) string { return r.Incident.PoliceBadgeNumber }},
	{"police_force", func(r *models.DomainRecord) string { return r.Incident.PoliceForce }},
	{"police_reference", func(r *models.DomainRecord) string { return r.Incident.PoliceReference }},
	{"breath_test_result", func(r *models.DomainRecord) string { return r.Incident.BreathTestResult }},
	{"damage_description", func(r *models.DomainRecord) string { return r.Incident.DamageDescription }},
	{"other_damage", func(r *models.DomainRecord) string { return r.Incident.OtherDamage }},
	{"special_conditions", func(r *models.DomainRecord) string { return r.Incident.SpecialConditions }},
	{"additional_notes", func(r *models.DomainRecord) string { return r.Incident.AdditionalNotes }},
}

type compositeBinding struct {
	get    func(*models.DomainRecord) string
	fields [4]string
}

// compositeBindings split "Name | Phone | Email | Company" strings positionally.
var compositeBindings = []compositeBinding{
	{func(r *models.DomainRecord) string { return r.User.RecoveryContact }, [4]string{"recovery_contact_name", "recovery_contact_phone", "recovery_contact_email", "recovery_company"}},
	{func(r *models.DomainRecord) string { return r.User.EmergencyContact }, [4]string{"emergency_contact_name", "emergency_contact_phone", "emergency_contact_email", "emergency_contact_company"}},
}

// imageFields maps a logical image slot to the text field that carries its URL.
var imageFields = map[string]string{
	models.ImageDrivingLicense:   "file_url_driving_license",
	models.ImageVehicleFront:     "file_url_vehicle_front",
	models.ImageVehicleBack:      "file_url_vehicle_back",
	models.ImageVehicleDriver:    "file_url_vehicle_driver_side",
	models.ImageVehiclePassenger: "file_url_vehicle_passenger_side",
	models.ImageDamage1:          "file_url_damage_1",
	models.ImageDamage2:          "file_url_damage_2",
	models.ImageDamage3:          "file_url_damage_3",
	models.ImageScene1:           "file_url_scene_1",
	models.ImageScene2:           "file_url_scene_2",
	models.ImageOtherVehicle:     "file_url_other_vehicle",
	models.ImageOtherDamage:      "file_url_other_vehicle_damage",
	models.ImageDocument:         "file_url_document",
	models.ImageAudio:            "file_url_audio_account",
}

type checkboxGroup struct {
	name  string
	facts []string
}

// checkboxGroups are single checkboxes whose logical name is also the fact key.
var checkboxGroups = []checkboxGroup{
	{"Weather and lighting", []string{
		"weather_clear",
		"weather_sunny",
		"weather_overcast",
		"weather_cloudy",
		"weather_light_rain",
		"weather_heavy_rain",
		"weather_drizzle",
		"weather_fog",
		"weather_snow",
		"weather_ice",
		"weather_windy",
		"weather_hail",
		"weather_thunder_lightning",
		"weather_dusk",
		"weather_dark",
		"weather_bright_daylight",
		"weather_street_lights",
	}},
	{"Road surface", []string{
		"road_dry",
		"road_wet",
		"road_icy",
		"road_snow_covered",
		"road_loose_surface",
		"road_flooded",
		"road_oil_spill",
		"road_potholes",
	}},
	{"Road type", []string{
		"road_type_motorway",
		"road_type_a_road",
		"road_type_b_road",
		"road_type_urban",
		"road_type_rural",
		"road_type_car_park",
		"road_type_private",
	}},
	{"Junction", []string{
		"junction_roundabout",
		"junction_t_junction",
		"junction_crossroads",
		"junction_slip_road",
		"junction_traffic_lights",
		"junction_none",
	}},
	{"Points of impact", []string{
		"impact_front",
		"impact_front_nearside",
		"impact_front_offside",
		"impact_rear",
		"impact_rear_nearside",
		"impact_rear_offside",
		"impact_nearside",
		"impact_offside",
		"impact_roof",
		"impact_undercarriage",
	}},
	{"Injuries", []string{
		"injury_head",
		"injury_neck",
		"injury_back",
		"injury_chest",
		"injury_arms",
		"injury_legs",
		"injury_whiplash",
		"injury_cuts",
		"injury_shock",
	}},
	{"Manoeuvre at time of collision", []string{
		"manoeuvre_parked",
		"manoeuvre_stationary",
		"manoeuvre_reversing",
		"manoeuvre_turning_left",
		"manoeuvre_turning_right",
		"manoeuvre_overtaking",
		"manoeuvre_changing_lanes",
		"manoeuvre_braking",
		"manoeuvre_accelerating",
	}},
	{"Declarations", []string{
		"declaration_true_account",
		"declaration_contact_ok",
	}},
}

// pairedFacts are yes/no questions rendered as two checkboxes named
// <fact>_yes and <fact>_no.
var pairedFacts = []string{
	"medical_attention",
	"ambulance_called",
	"hospital_visit",
	"police_attended",
	"breath_test",
	"seatbelts_worn",
	"airbags_deployed",
	"dashcam_footage",
	"vehicle_driveable",
	"other_party_admitted_fault",
	"witnesses_present",
	"other_vehicles_involved",
	"recovered_by_recovery",
	"photos_taken",
	"emergency_services_called",
}

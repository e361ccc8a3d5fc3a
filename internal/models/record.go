package models

import "time"

// DomainRecord is everything the pipeline needs for one report. It is produced
// wholesale by the data-fetch step and treated as read-only afterwards.
type DomainRecord struct {
	IncidentID string
	User       UserProfile
	Incident   Incident
	Witnesses  []Witness
	Vehicles   []OtherVehicle
	// Images maps a logical image slot (see the Image* constants) to a resolved URL.
	Images map[string]string
	Prose  Prose
}

// UserProfile is the reporting driver.
type UserProfile struct {
	FullName             string `firestore:"fullName,omitempty"`
	DateOfBirth          string `firestore:"dateOfBirth,omitempty"`
	Address              string `firestore:"address,omitempty"`
	Town                 string `firestore:"town,omitempty"`
	Postcode             string `firestore:"postcode,omitempty"`
	Country              string `firestore:"country,omitempty"`
	Phone                string `firestore:"phone,omitempty"`
	Email                string `firestore:"email,omitempty"`
	Occupation           string `firestore:"occupation,omitempty"`
	DrivingLicenseNumber string `firestore:"drivingLicenseNumber,omitempty"`
	LicenseExpiry        string `firestore:"licenseExpiry,omitempty"`
	VehicleMake          string `firestore:"vehicleMake,omitempty"`
	VehicleModel         string `firestore:"vehicleModel,omitempty"`
	VehicleColour        string `firestore:"vehicleColour,omitempty"`
	VehicleRegistration  string `firestore:"vehicleRegistration,omitempty"`
	VehicleYear          string `firestore:"vehicleYear,omitempty"`
	VehicleCondition     string `firestore:"vehicleCondition,omitempty"`
	InsuranceCompany     string `firestore:"insuranceCompany,omitempty"`
	PolicyNumber         string `firestore:"policyNumber,omitempty"`
	PolicyHolder         string `firestore:"policyHolder,omitempty"`
	CoverType            string `firestore:"coverType,omitempty"`
	// RecoveryContact is stored upstream as "Name | Phone | Email | Company".
	RecoveryContact string `firestore:"recoveryContact,omitempty"`
	// EmergencyContact uses the same pipe-delimited layout.
	EmergencyContact string `firestore:"emergencyContact,omitempty"`
}

// Incident holds the facts of the collision. Text facts are typed; yes/no facts
// live in Facts keyed by their logical name because upstream stores them as a
// mix of booleans and legacy strings.
type Incident struct {
	Date               string         `firestore:"date,omitempty"`
	Time               string         `firestore:"time,omitempty"`
	Location           string         `firestore:"location,omitempty"`
	What3Words         string         `firestore:"what3words,omitempty"`
	NearestLandmark    string         `firestore:"nearestLandmark,omitempty"`
	RoadType           string         `firestore:"roadType,omitempty"`
	SpeedLimit         string         `firestore:"speedLimit,omitempty"`
	YourSpeed          string         `firestore:"yourSpeed,omitempty"`
	Direction          string         `firestore:"direction,omitempty"`
	Visibility         string         `firestore:"visibility,omitempty"`
	TrafficConditions  string         `firestore:"trafficConditions,omitempty"`
	Description        string         `firestore:"description,omitempty"`
	InjuryDescription  string         `firestore:"injuryDescription,omitempty"`
	HospitalName       string         `firestore:"hospitalName,omitempty"`
	AmbulanceReference string         `firestore:"ambulanceReference,omitempty"`
	PoliceOfficerName  string         `firestore:"policeOfficerName,omitempty"`
	PoliceBadgeNumber  string         `firestore:"policeBadgeNumber,omitempty"`
	PoliceForce        string         `firestore:"policeForce,omitempty"`
	PoliceReference    string         `firestore:"policeReference,omitempty"`
	BreathTestResult   string         `firestore:"breathTestResult,omitempty"`
	DamageDescription  string         `firestore:"damageDescription,omitempty"`
	OtherDamage        string         `firestore:"otherDamage,omitempty"`
	SpecialConditions  string         `firestore:"specialConditions,omitempty"`
	AdditionalNotes    string         `firestore:"additionalNotes,omitempty"`
	Facts              map[string]any `firestore:"facts,omitempty"`
	CreatedAt          time.Time      `firestore:"createdAt,omitempty"`
}

// Witness is one independent witness. Each one gets its own appended page.
type Witness struct {
	Name      string `firestore:"name,omitempty"`
	Phone     string `firestore:"phone,omitempty"`
	Email     string `firestore:"email,omitempty"`
	Address   string `firestore:"address,omitempty"`
	Statement string `firestore:"statement,omitempty"`
}

// OtherVehicle is a third-party vehicle. Each one gets its own appended page.
type OtherVehicle struct {
	DriverName        string `firestore:"driverName,omitempty"`
	DriverPhone       string `firestore:"driverPhone,omitempty"`
	DriverAddress     string `firestore:"driverAddress,omitempty"`
	Make              string `firestore:"make,omitempty"`
	Model             string `firestore:"model,omitempty"`
	Colour            string `firestore:"colour,omitempty"`
	Registration      string `firestore:"registration,omitempty"`
	InsuranceCompany  string `firestore:"insuranceCompany,omitempty"`
	PolicyNumber      string `firestore:"policyNumber,omitempty"`
	PolicyHolder      string `firestore:"policyHolder,omitempty"`
	DamageDescription string `firestore:"damageDescription,omitempty"`
}

// Prose is the AI-generated narrative. The pipeline treats every field as an
// opaque string.
type Prose struct {
	Transcription    string `firestore:"transcription,omitempty"`
	Summary          string `firestore:"summary,omitempty"`
	ClosingStatement string `firestore:"closingStatement,omitempty"`
	FinalReview      string `firestore:"finalReview,omitempty"`
}

// Logical image slots.
const (
	ImageDrivingLicense   = "driving_license"
	ImageVehicleFront     = "vehicle_front"
	ImageVehicleBack      = "vehicle_back"
	ImageVehicleDriver    = "vehicle_driver_side"
	ImageVehiclePassenger = "vehicle_passenger_side"
	ImageDamage1          = "damage_1"
	ImageDamage2          = "damage_2"
	ImageDamage3          = "damage_3"
	ImageScene1           = "scene_1"
	ImageScene2           = "scene_2"
	ImageOtherVehicle     = "other_vehicle"
	ImageOtherDamage      = "other_vehicle_damage"
	ImageDocument         = "document"
	ImageAudio            = "audio_account"
)

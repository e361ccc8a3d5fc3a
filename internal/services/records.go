package services

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Lllllllleong/incidentreportflow/internal/gcp"
	"github.com/Lllllllleong/incidentreportflow/internal/models"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrOwnerMismatch  = errors.New("incident does not belong to user")
)

// RecordSource is the data-fetch step that produces a DomainRecord.
type RecordSource interface {
	Load(ctx context.Context, incidentID, userID string) (*models.DomainRecord, error)
}

// incidentDocument is the stored shape of one incident. Witnesses and other
// vehicles live in subcollections of the same document.
type incidentDocument struct {
	UserID   string            `firestore:"userId"`
	Incident models.Incident   `firestore:"incident"`
	Images   map[string]string `firestore:"images,omitempty"`
	Prose    models.Prose      `firestore:"prose,omitempty"`
}

// FirestoreRecords loads records from the incidents and users collections.
type FirestoreRecords struct {
	client    *firestore.Client
	incidents string
	users     string
}

// NewFirestoreRecords returns a RecordSource backed by client.
func NewFirestoreRecords(client *firestore.Client, incidents, users string) *FirestoreRecords {
	return &FirestoreRecords{client: client, incidents: incidents, users: users}
}

// Load reads the incident, its witnesses and vehicles in document ID order,
// and the reporting user's profile.
func (s *FirestoreRecords) Load(ctx context.Context, incidentID, userID string) (*models.DomainRecord, error) {
	incRef := s.client.Collection(s.incidents).Doc(incidentID)
	snap, err := incRef.Get(ctx)
	if err != nil {
		return nil, notFound(err, "incident "+incidentID)
	}
	var inc incidentDocument
	if err := snap.DataTo(&inc); err != nil {
		return nil, fmt.Errorf("failed to decode incident %s: %w", incidentID, err)
	}
	if inc.UserID != userID {
		return nil, fmt.Errorf("%w: incident %s", ErrOwnerMismatch, incidentID)
	}

	witnesses, err := gcp.DecodeAll[models.Witness](incRef.Collection("witnesses").OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to load witnesses: %w", err)
	}
	vehicles, err := gcp.DecodeAll[models.OtherVehicle](incRef.Collection("vehicles").OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to load vehicles: %w", err)
	}

	userSnap, err := s.client.Collection(s.users).Doc(userID).Get(ctx)
	if err != nil {
		return nil, notFound(err, "user "+userID)
	}
	var user models.UserProfile
	if err := userSnap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user %s: %w", userID, err)
	}

	return &models.DomainRecord{
		IncidentID: incidentID,
		User:       user,
		Incident:   inc.Incident,
		Witnesses:  witnesses,
		Vehicles:   vehicles,
		Images:     inc.Images,
		Prose:      inc.Prose,
	}, nil
}

func notFound(err error, what string) error {
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, what)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

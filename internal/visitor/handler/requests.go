package handler

import (
	"gatehouse/internal/visitor/models"
	id "gatehouse/pkg/domain"
	dErrors "gatehouse/pkg/domain-errors"
)

// CheckInRequest is the POST /visitors/check-in body.
type CheckInRequest struct {
	SiteID        string `json:"site_id"`
	AccessPointID string `json:"access_point_id"`

	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Company  string `json:"company"`
	Purpose  string `json:"purpose"`

	SpecialAccess    string `json:"special_access"`
	EmergencyContact struct {
		Name  string `json:"name"`
		Phone string `json:"phone"`
	} `json:"emergency_contact"`
	ExpectedDurationHours float64 `json:"expected_duration_hours"`
}

// ToInput converts the wire request into the domain input, validating the
// embedded IDs at the trust boundary.
func (r CheckInRequest) ToInput() (models.CheckInInput, error) {
	siteID, err := id.ParseSiteID(r.SiteID)
	if err != nil {
		return models.CheckInInput{}, dErrors.Wrap(err, dErrors.CodeValidation, "invalid site_id")
	}
	apID, err := id.ParseAccessPointID(r.AccessPointID)
	if err != nil {
		return models.CheckInInput{}, dErrors.Wrap(err, dErrors.CodeValidation, "invalid access_point_id")
	}
	return models.CheckInInput{
		SiteID:        siteID,
		AccessPointID: apID,
		FullName:      r.FullName,
		Email:         r.Email,
		Phone:         r.Phone,
		Company:       r.Company,
		Purpose:       r.Purpose,
		SpecialAccess: models.SpecialAccess(r.SpecialAccess),
		EmergencyContact: models.EmergencyContact{
			Name:  r.EmergencyContact.Name,
			Phone: r.EmergencyContact.Phone,
		},
		ExpectedDurationHours: r.ExpectedDurationHours,
	}, nil
}

// CheckOutRequest is the PUT /visitors/{id}/check-out body.
type CheckOutRequest struct {
	Notes string `json:"notes"`
}

// CheckInResponse pairs the created visitor with its issued badge.
type CheckInResponse struct {
	Visitor *models.Visitor `json:"visitor"`
	Badge   BadgeResponse   `json:"badge"`
}

type BadgeResponse struct {
	Number    string `json:"number"`
	QRPayload string `json:"qr_payload"`
}

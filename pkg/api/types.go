// Package api holds the HTTP wire types, the server interface and the
// embedded OpenAPI document of the MindCare API.
package api

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// Error codes returned in ErrorResponse.Code
const (
	ErrorCodeValidation    = "VALIDATION_ERROR"
	ErrorCodeUnauthorized  = "UNAUTHORIZED"
	ErrorCodeAuthorization = "AUTHORIZATION_ERROR"
	ErrorCodeNotFound      = "NOT_FOUND"
	ErrorCodeState         = "STATE_ERROR"
	ErrorCodeInternal      = "INTERNAL_ERROR"
)

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message"`
	Details *string `json:"details,omitempty"`
}

// Test defines model for Test.
type Test struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Choice defines model for Choice.
type Choice struct {
	Id    string `json:"id"`
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// Question defines model for Question.
type Question struct {
	Id      string   `json:"id"`
	Order   int      `json:"order"`
	Text    string   `json:"text"`
	Choices []Choice `json:"choices"`
}

// ResponseItem defines model for ResponseItem.
type ResponseItem struct {
	Question string `json:"question" binding:"required"`
	Choice   string `json:"choice" binding:"required"`
}

// SubmitResponseRequest defines model for SubmitResponseRequest.
type SubmitResponseRequest struct {
	Items []ResponseItem `json:"items" binding:"required,min=1,dive"`
}

// ResultItem defines model for ResultItem.
type ResultItem struct {
	Question string `json:"question"`
	Choice   string `json:"choice"`
	Score    int    `json:"score"`
}

// AssessmentResult defines model for AssessmentResult.
type AssessmentResult struct {
	Id             openapi_types.UUID `json:"id"`
	Test           string             `json:"test"`
	TotalScore     int                `json:"total_score"`
	RiskLevel      string             `json:"risk_level"`
	HasSuicideRisk bool               `json:"has_suicide_risk"`
	Recommendation string             `json:"recommendation"`
	Items          []ResultItem       `json:"items"`
	CreatedAt      time.Time          `json:"created_at"`
}

// PreferredPeriod defines model for PreferredPeriod.
type PreferredPeriod struct {
	Date    openapi_types.Date `json:"date" binding:"required"`
	Periods []string           `json:"periods" binding:"required,min=1"`
}

// AppointmentDetail defines model for AppointmentDetail.
type AppointmentDetail struct {
	Name            string  `json:"name"`
	Phone           string  `json:"phone"`
	MainConcerns    string  `json:"main_concerns"`
	PreviousTherapy bool    `json:"previous_therapy"`
	Urgency         *string `json:"urgency,omitempty"`
	SpecialNeeds    *string `json:"special_needs,omitempty"`
}

// CreateAppointmentRequest defines model for CreateAppointmentRequest.
type CreateAppointmentRequest struct {
	Email            string            `json:"email" binding:"required"`
	IdNumber         string            `json:"id_number" binding:"required,twid"`
	TherapistId      *string           `json:"therapist_id,omitempty"`
	SpecialtyId      *string           `json:"specialty_id,omitempty"`
	ConsultationType string            `json:"consultation_type" binding:"required"`
	PreferredPeriods []PreferredPeriod `json:"preferred_periods" binding:"dive"`
	Detail           AppointmentDetail `json:"detail"`
}

// IdentityRequest defines model for IdentityRequest.
type IdentityRequest struct {
	Email    string `json:"email" binding:"required"`
	IdNumber string `json:"id_number" binding:"required,twid"`
}

// ConfirmTimeRequest defines model for ConfirmTimeRequest.
type ConfirmTimeRequest struct {
	ConfirmedDatetime time.Time `json:"confirmed_datetime" binding:"required"`
	ConsultationRoom  *string   `json:"consultation_room,omitempty"`
}

// UpdateStatusRequest defines model for UpdateStatusRequest.
type UpdateStatusRequest struct {
	Status          string  `json:"status" binding:"required"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
}

// Appointment defines model for Appointment.
type Appointment struct {
	Id                openapi_types.UUID  `json:"id"`
	Email             openapi_types.Email `json:"email"`
	TherapistId       *openapi_types.UUID `json:"therapist_id,omitempty"`
	Therapist         *string             `json:"therapist,omitempty"`
	SpecialtyId       *openapi_types.UUID `json:"specialty_id,omitempty"`
	ConsultationType  string              `json:"consultation_type"`
	Price             int                 `json:"price"`
	Status            string              `json:"status"`
	PreferredPeriods  []PreferredPeriod   `json:"preferred_periods"`
	ConfirmedDatetime *time.Time          `json:"confirmed_datetime,omitempty"`
	ConsultationRoom  *string             `json:"consultation_room,omitempty"`
	ConfirmedAt       *time.Time          `json:"confirmed_at,omitempty"`
	RejectionReason   *string             `json:"rejection_reason,omitempty"`
	Detail            AppointmentDetail   `json:"detail"`
	CreatedAt         time.Time           `json:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at"`
}

// Specialty defines model for Specialty.
type Specialty struct {
	Id          openapi_types.UUID `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
}

// Therapist defines model for Therapist.
type Therapist struct {
	Id                openapi_types.UUID `json:"id"`
	Name              string             `json:"name"`
	Title             string             `json:"title"`
	LicenseNumber     string             `json:"license_number"`
	Education         string             `json:"education"`
	Experience        string             `json:"experience"`
	Beliefs           string             `json:"beliefs"`
	PhotoUrl          *string            `json:"photo_url,omitempty"`
	Specialties       []Specialty        `json:"specialties"`
	ConsultationModes []string           `json:"consultation_modes"`
	Pricing           map[string]int     `json:"pricing"`
}

// Article defines model for Article.
type Article struct {
	Id               openapi_types.UUID `json:"id"`
	Title            string             `json:"title"`
	Excerpt          string             `json:"excerpt"`
	Content          string             `json:"content"`
	FeaturedImageUrl *string            `json:"featured_image_url,omitempty"`
	Tags             []string           `json:"tags"`
	Author           string             `json:"author"`
	PublishedAt      time.Time          `json:"published_at"`
}

// AnnouncementCategory defines model for AnnouncementCategory.
type AnnouncementCategory struct {
	Id          openapi_types.UUID `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Color       string             `json:"color"`
	Order       int                `json:"order"`
}

// Announcement defines model for Announcement.
type Announcement struct {
	Id               openapi_types.UUID    `json:"id"`
	Title            string                `json:"title"`
	Summary          string                `json:"summary"`
	Content          string                `json:"content"`
	Category         *AnnouncementCategory `json:"category,omitempty"`
	FeaturedImageUrl *string               `json:"featured_image_url,omitempty"`
	Priority         string                `json:"priority"`
	IsPinned         bool                  `json:"is_pinned"`
	PublishDate      *time.Time            `json:"publish_date,omitempty"`
	ExpireDate       *time.Time            `json:"expire_date,omitempty"`
	ViewsCount       int                   `json:"views_count"`
}

// HomepageAnnouncements defines model for HomepageAnnouncements.
type HomepageAnnouncements struct {
	PinnedAnnouncements []Announcement `json:"pinned_announcements"`
	RecentAnnouncements []Announcement `json:"recent_announcements"`
}

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status   string  `json:"status"`
	Database string  `json:"database"`
	Service  *string `json:"service,omitempty"`
	Version  *string `json:"version,omitempty"`
	Error    *string `json:"error,omitempty"`
}

// ListPendingAppointmentsParams defines parameters for ListPendingAppointments.
type ListPendingAppointmentsParams struct {
	Therapist *string `form:"therapist,omitempty" json:"therapist,omitempty"`
}

// ListTherapistsParams defines parameters for ListTherapists.
type ListTherapistsParams struct {
	Specialty *string `form:"specialty,omitempty" json:"specialty,omitempty"`
}

// ListAnnouncementsParams defines parameters for ListAnnouncements.
type ListAnnouncementsParams struct {
	Category *string `form:"category,omitempty" json:"category,omitempty"`
	Priority *string `form:"priority,omitempty" json:"priority,omitempty"`
	Pinned   *bool   `form:"pinned,omitempty" json:"pinned,omitempty"`
	Q        *string `form:"q,omitempty" json:"q,omitempty"`
}

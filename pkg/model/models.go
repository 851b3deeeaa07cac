package model

import "time"

// TestCode identifies a self-assessment questionnaire
type TestCode string

const (
	TestCodeWHO5  TestCode = "WHO5"
	TestCodeBSRS5 TestCode = "BSRS5"
)

// Test represents a questionnaire definition
type Test struct {
	Code        TestCode `json:"code"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
}

// Question represents one questionnaire item. Order is 1-based and contiguous within a test.
type Question struct {
	ID       string   `json:"id"`
	TestCode TestCode `json:"-"`
	Order    int      `json:"order"`
	Text     string   `json:"text"`
	Choices  []Choice `json:"choices"`
}

// Choice represents a scored answer option of a question
type Choice struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Score int    `json:"score"`
}

// AssessmentResponseItem is one submitted answer
type AssessmentResponseItem struct {
	QuestionID string `json:"question"`
	ChoiceID   string `json:"choice"`
}

// AssessmentResultItem is a scored answer stored with a result
type AssessmentResultItem struct {
	QuestionID string `json:"question"`
	ChoiceID   string `json:"choice"`
	Score      int    `json:"score"`
}

// AssessmentResult is the immutable outcome of a submission
type AssessmentResult struct {
	ID             string                 `json:"id"`
	TestCode       TestCode               `json:"test"`
	UserID         *string                `json:"user_id,omitempty"`
	TotalScore     int                    `json:"total_score"`
	RiskLevel      string                 `json:"risk_level"`
	HasSuicideRisk bool                   `json:"has_suicide_risk"`
	Recommendation string                 `json:"recommendation"`
	Items          []AssessmentResultItem `json:"items"`
	CreatedAt      time.Time              `json:"created_at"`
}

// ConsultationType represents how a session is held
type ConsultationType string

const (
	ConsultationOnline  ConsultationType = "online"
	ConsultationOffline ConsultationType = "offline"
)

// Valid reports whether the consultation type is known
func (c ConsultationType) Valid() bool {
	return c == ConsultationOnline || c == ConsultationOffline
}

// Period is a coarse time-of-day bucket
type Period string

const (
	PeriodMorning   Period = "morning"
	PeriodAfternoon Period = "afternoon"
	PeriodEvening   Period = "evening"
)

// Rank orders periods within a day
func (p Period) Rank() int {
	switch p {
	case PeriodMorning:
		return 0
	case PeriodAfternoon:
		return 1
	case PeriodEvening:
		return 2
	}
	return -1
}

// PreferredPeriod is a desired date with one or more periods
type PreferredPeriod struct {
	Date    time.Time `json:"date"`
	Periods []Period  `json:"periods"`
}

// Urgency is the client's self-reported urgency
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// Valid reports whether the urgency is known
func (u Urgency) Valid() bool {
	return u == UrgencyLow || u == UrgencyMedium || u == UrgencyHigh
}

// AppointmentStatus represents the lifecycle state of an appointment
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
	AppointmentRejected  AppointmentStatus = "rejected"
)

// Actor distinguishes who requests a status transition
type Actor string

const (
	ActorClient Actor = "client"
	ActorStaff  Actor = "staff"
)

// transitions lists the allowed moves per actor
var transitions = map[AppointmentStatus]map[AppointmentStatus][]Actor{
	AppointmentPending: {
		AppointmentConfirmed: {ActorStaff},
		AppointmentRejected:  {ActorStaff},
		AppointmentCancelled: {ActorClient, ActorStaff},
	},
	AppointmentConfirmed: {
		AppointmentCompleted: {ActorStaff},
		AppointmentCancelled: {ActorStaff},
	},
}

// CanTransition reports whether actor may move an appointment from s to next
func (s AppointmentStatus) CanTransition(next AppointmentStatus, actor Actor) bool {
	for _, a := range transitions[s][next] {
		if a == actor {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible
func (s AppointmentStatus) Terminal() bool {
	return len(transitions[s]) == 0
}

// Valid reports whether the status is known
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled, AppointmentRejected:
		return true
	}
	return false
}

// Client is a booking identity. The national ID is only kept as a bcrypt hash.
type Client struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	IDNumberHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// AppointmentDetail holds intake information submitted with a booking
type AppointmentDetail struct {
	Name            string  `json:"name"`
	Phone           string  `json:"phone"`
	MainConcerns    string  `json:"main_concerns"`
	PreviousTherapy bool    `json:"previous_therapy"`
	Urgency         Urgency `json:"urgency"`
	SpecialNeeds    string  `json:"special_needs"`
}

// Appointment represents a counseling booking
type Appointment struct {
	ID               string            `json:"id"`
	ClientID         string            `json:"-"`
	Email            string            `json:"email"`
	TherapistID      *string           `json:"therapist_id,omitempty"`
	TherapistName    *string           `json:"therapist,omitempty"`
	SpecialtyID      *string           `json:"specialty_id,omitempty"`
	ConsultationType ConsultationType  `json:"consultation_type"`
	Price            int               `json:"price"`
	Status           AppointmentStatus `json:"status"`
	PreferredPeriods []PreferredPeriod `json:"preferred_periods"`
	ConfirmedSlot    *time.Time        `json:"confirmed_slot,omitempty"`
	ConsultationRoom *string           `json:"consultation_room,omitempty"`
	ConfirmedAt      *time.Time        `json:"confirmed_at,omitempty"`
	RejectionReason  *string           `json:"rejection_reason,omitempty"`
	Detail           AppointmentDetail `json:"detail"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// Specialty is a clinical focus area
type Specialty struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
}

// Therapist represents a therapist profile in the directory
type Therapist struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Title             string             `json:"title"`
	LicenseNumber     string             `json:"license_number"`
	Education         string             `json:"education"`
	Experience        string             `json:"experience"`
	Beliefs           string             `json:"beliefs"`
	Email             *string            `json:"-"`
	PhotoURL          *string            `json:"photo_url,omitempty"`
	Specialties       []Specialty        `json:"specialties"`
	ConsultationModes []ConsultationType `json:"consultation_modes"`
	Pricing           map[string]int     `json:"pricing"`
	CreatedAt         time.Time          `json:"created_at"`
}

// Offers reports whether the therapist supports the consultation type
func (t *Therapist) Offers(mode ConsultationType) bool {
	for _, m := range t.ConsultationModes {
		if m == mode {
			return true
		}
	}
	return false
}

// HasSpecialty reports whether the therapist lists the specialty
func (t *Therapist) HasSpecialty(specialtyID string) bool {
	for _, s := range t.Specialties {
		if s.ID == specialtyID {
			return true
		}
	}
	return false
}

// EmailType identifies a scheduled e-mail kind
type EmailType string

const (
	EmailReminderUser      EmailType = "reminder_24h_user"
	EmailReminderTherapist EmailType = "reminder_24h_therapist"
)

// EmailStatus represents the delivery state of a scheduled e-mail
type EmailStatus string

const (
	EmailPending   EmailStatus = "pending"
	EmailSending   EmailStatus = "sending"
	EmailSent      EmailStatus = "sent"
	EmailFailed    EmailStatus = "failed"
	EmailCancelled EmailStatus = "cancelled"
)

// ScheduledEmail is a reminder queued for later delivery
type ScheduledEmail struct {
	ID            string      `json:"id"`
	AppointmentID string      `json:"appointment_id"`
	EmailType     EmailType   `json:"email_type"`
	Recipient     string      `json:"recipient"`
	ScheduledTime time.Time   `json:"scheduled_time"`
	Status        EmailStatus `json:"status"`
	SentAt        *time.Time  `json:"sent_at,omitempty"`
	ErrorMessage  string      `json:"error_message,omitempty"`
	RetryCount    int         `json:"retry_count"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Article is a published mental-health article
type Article struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Excerpt          string    `json:"excerpt"`
	Content          string    `json:"content"`
	FeaturedImageURL *string   `json:"featured_image_url,omitempty"`
	Tags             []string  `json:"tags"`
	Author           string    `json:"author"`
	IsPublished      bool      `json:"is_published"`
	PublishedAt      time.Time `json:"published_at"`
}

// AnnouncementCategory groups announcements under a colored label
type AnnouncementCategory struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	IsActive    bool   `json:"is_active"`
	Order       int    `json:"order"`
}

// AnnouncementPriority ranks how prominently an announcement is shown
type AnnouncementPriority string

const (
	PriorityLow    AnnouncementPriority = "low"
	PriorityMedium AnnouncementPriority = "medium"
	PriorityHigh   AnnouncementPriority = "high"
)

// Valid reports whether the priority is known
func (p AnnouncementPriority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// AnnouncementStatus is the editorial state of an announcement
type AnnouncementStatus string

const (
	AnnouncementDraft     AnnouncementStatus = "draft"
	AnnouncementPublished AnnouncementStatus = "published"
	AnnouncementArchived  AnnouncementStatus = "archived"
)

// Announcement is a news item of the counseling center
type Announcement struct {
	ID               string                `json:"id"`
	Title            string                `json:"title"`
	Summary          string                `json:"summary"`
	Content          string                `json:"content"`
	Category         *AnnouncementCategory `json:"category,omitempty"`
	FeaturedImageURL *string               `json:"featured_image_url,omitempty"`
	Priority         AnnouncementPriority  `json:"priority"`
	Status           AnnouncementStatus    `json:"status"`
	IsPinned         bool                  `json:"is_pinned"`
	ShowOnHomepage   bool                  `json:"show_on_homepage"`
	PublishDate      *time.Time            `json:"publish_date,omitempty"`
	ExpireDate       *time.Time            `json:"expire_date,omitempty"`
	ViewsCount       int                   `json:"views_count"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// Visible reports whether the announcement is published and inside its
// publish/expire window at now
func (a *Announcement) Visible(now time.Time) bool {
	if a.Status != AnnouncementPublished {
		return false
	}
	if a.PublishDate != nil && now.Before(*a.PublishDate) {
		return false
	}
	if a.ExpireDate != nil && !now.Before(*a.ExpireDate) {
		return false
	}
	return true
}

// AnnouncementFilter narrows an announcement listing. Zero values match everything.
type AnnouncementFilter struct {
	CategoryID   string
	Priority     AnnouncementPriority
	Pinned       *bool
	Search       string
	HomepageOnly bool
}

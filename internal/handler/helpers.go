package handler

import (
	"github.com/google/uuid"
	"github.com/mindcare-tw/mindcare-backend/pkg/api"
	"github.com/mindcare-tw/mindcare-backend/pkg/model"
	"github.com/oapi-codegen/runtime/types"
)

// Helper functions for type conversions between API types and internal models

// stringPtr creates a pointer to a string
func stringPtr(s string) *string {
	return &s
}

// optionalString returns nil for an empty string
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// stringToUUID converts string to types.UUID. Malformed ids become the zero UUID.
func stringToUUID(s string) types.UUID {
	u, err := uuid.Parse(s)
	if err != nil {
		return types.UUID(uuid.Nil)
	}
	return types.UUID(u)
}

// stringPtrToUUID converts *string to *types.UUID
func stringPtrToUUID(s *string) *types.UUID {
	if s == nil {
		return nil
	}
	u := stringToUUID(*s)
	return &u
}

func toAPIPeriods(prefs []model.PreferredPeriod) []api.PreferredPeriod {
	out := make([]api.PreferredPeriod, 0, len(prefs))
	for _, p := range prefs {
		periods := make([]string, 0, len(p.Periods))
		for _, period := range p.Periods {
			periods = append(periods, string(period))
		}
		out = append(out, api.PreferredPeriod{
			Date:    types.Date{Time: p.Date},
			Periods: periods,
		})
	}
	return out
}

func toModelPeriods(prefs []api.PreferredPeriod) []model.PreferredPeriod {
	out := make([]model.PreferredPeriod, 0, len(prefs))
	for _, p := range prefs {
		periods := make([]model.Period, 0, len(p.Periods))
		for _, period := range p.Periods {
			periods = append(periods, model.Period(period))
		}
		out = append(out, model.PreferredPeriod{
			Date:    p.Date.Time,
			Periods: periods,
		})
	}
	return out
}

func toAPIAppointment(a *model.Appointment) api.Appointment {
	urgency := string(a.Detail.Urgency)
	return api.Appointment{
		Id:                stringToUUID(a.ID),
		Email:             types.Email(a.Email),
		TherapistId:       stringPtrToUUID(a.TherapistID),
		Therapist:         a.TherapistName,
		SpecialtyId:       stringPtrToUUID(a.SpecialtyID),
		ConsultationType:  string(a.ConsultationType),
		Price:             a.Price,
		Status:            string(a.Status),
		PreferredPeriods:  toAPIPeriods(a.PreferredPeriods),
		ConfirmedDatetime: a.ConfirmedSlot,
		ConsultationRoom:  a.ConsultationRoom,
		ConfirmedAt:       a.ConfirmedAt,
		RejectionReason:   a.RejectionReason,
		Detail: api.AppointmentDetail{
			Name:            a.Detail.Name,
			Phone:           a.Detail.Phone,
			MainConcerns:    a.Detail.MainConcerns,
			PreviousTherapy: a.Detail.PreviousTherapy,
			Urgency:         optionalString(urgency),
			SpecialNeeds:    optionalString(a.Detail.SpecialNeeds),
		},
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toAPIAppointments(appts []model.Appointment) []api.Appointment {
	out := make([]api.Appointment, 0, len(appts))
	for i := range appts {
		out = append(out, toAPIAppointment(&appts[i]))
	}
	return out
}

func toAPIResult(r *model.AssessmentResult) api.AssessmentResult {
	items := make([]api.ResultItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, api.ResultItem{Question: it.QuestionID, Choice: it.ChoiceID, Score: it.Score})
	}
	return api.AssessmentResult{
		Id:             stringToUUID(r.ID),
		Test:           string(r.TestCode),
		TotalScore:     r.TotalScore,
		RiskLevel:      r.RiskLevel,
		HasSuicideRisk: r.HasSuicideRisk,
		Recommendation: r.Recommendation,
		Items:          items,
		CreatedAt:      r.CreatedAt,
	}
}

func toAPISpecialty(s model.Specialty) api.Specialty {
	return api.Specialty{
		Id:          stringToUUID(s.ID),
		Name:        s.Name,
		Description: s.Description,
	}
}

func toAPITherapist(t *model.Therapist) api.Therapist {
	specialties := make([]api.Specialty, 0, len(t.Specialties))
	for _, s := range t.Specialties {
		specialties = append(specialties, toAPISpecialty(s))
	}
	modes := make([]string, 0, len(t.ConsultationModes))
	for _, m := range t.ConsultationModes {
		modes = append(modes, string(m))
	}
	pricing := t.Pricing
	if pricing == nil {
		pricing = map[string]int{}
	}
	return api.Therapist{
		Id:                stringToUUID(t.ID),
		Name:              t.Name,
		Title:             t.Title,
		LicenseNumber:     t.LicenseNumber,
		Education:         t.Education,
		Experience:        t.Experience,
		Beliefs:           t.Beliefs,
		PhotoUrl:          t.PhotoURL,
		Specialties:       specialties,
		ConsultationModes: modes,
		Pricing:           pricing,
	}
}

func toAPIArticle(a *model.Article) api.Article {
	tags := a.Tags
	if tags == nil {
		tags = []string{}
	}
	return api.Article{
		Id:               stringToUUID(a.ID),
		Title:            a.Title,
		Excerpt:          a.Excerpt,
		Content:          a.Content,
		FeaturedImageUrl: a.FeaturedImageURL,
		Tags:             tags,
		Author:           a.Author,
		PublishedAt:      a.PublishedAt,
	}
}

func toAPICategory(c model.AnnouncementCategory) api.AnnouncementCategory {
	return api.AnnouncementCategory{
		Id:          stringToUUID(c.ID),
		Name:        c.Name,
		Description: c.Description,
		Color:       c.Color,
		Order:       c.Order,
	}
}

func toAPIAnnouncement(a *model.Announcement) api.Announcement {
	out := api.Announcement{
		Id:               stringToUUID(a.ID),
		Title:            a.Title,
		Summary:          a.Summary,
		Content:          a.Content,
		FeaturedImageUrl: a.FeaturedImageURL,
		Priority:         string(a.Priority),
		IsPinned:         a.IsPinned,
		PublishDate:      a.PublishDate,
		ExpireDate:       a.ExpireDate,
		ViewsCount:       a.ViewsCount,
	}
	if a.Category != nil {
		c := toAPICategory(*a.Category)
		out.Category = &c
	}
	return out
}

func toAPIAnnouncements(announcements []model.Announcement) []api.Announcement {
	out := make([]api.Announcement, 0, len(announcements))
	for i := range announcements {
		out = append(out, toAPIAnnouncement(&announcements[i]))
	}
	return out
}

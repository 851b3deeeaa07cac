package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppointmentStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from  AppointmentStatus
		to    AppointmentStatus
		actor Actor
		want  bool
	}{
		{AppointmentPending, AppointmentConfirmed, ActorStaff, true},
		{AppointmentPending, AppointmentConfirmed, ActorClient, false},
		{AppointmentPending, AppointmentRejected, ActorStaff, true},
		{AppointmentPending, AppointmentCancelled, ActorClient, true},
		{AppointmentPending, AppointmentCancelled, ActorStaff, true},
		{AppointmentPending, AppointmentCompleted, ActorStaff, false},
		{AppointmentConfirmed, AppointmentCompleted, ActorStaff, true},
		{AppointmentConfirmed, AppointmentCancelled, ActorStaff, true},
		{AppointmentConfirmed, AppointmentCancelled, ActorClient, false},
		{AppointmentConfirmed, AppointmentRejected, ActorStaff, false},
		{AppointmentCancelled, AppointmentPending, ActorStaff, false},
		{AppointmentRejected, AppointmentConfirmed, ActorStaff, false},
		{AppointmentCompleted, AppointmentCancelled, ActorStaff, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to)+"/"+string(tt.actor), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to, tt.actor))
		})
	}
}

func TestAppointmentStatus_Terminal(t *testing.T) {
	assert.False(t, AppointmentPending.Terminal())
	assert.False(t, AppointmentConfirmed.Terminal())
	assert.True(t, AppointmentCompleted.Terminal())
	assert.True(t, AppointmentCancelled.Terminal())
	assert.True(t, AppointmentRejected.Terminal())
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, AppointmentPending.Valid())
	assert.False(t, AppointmentStatus("archived").Valid())
	assert.True(t, ConsultationOnline.Valid())
	assert.False(t, ConsultationType("phone").Valid())
	assert.True(t, UrgencyHigh.Valid())
	assert.False(t, Urgency("critical").Valid())
	assert.Equal(t, -1, Period("night").Rank())
	assert.Less(t, PeriodMorning.Rank(), PeriodAfternoon.Rank())
	assert.Less(t, PeriodAfternoon.Rank(), PeriodEvening.Rank())
}

func TestTherapist_OffersAndHasSpecialty(t *testing.T) {
	th := &Therapist{
		ConsultationModes: []ConsultationType{ConsultationOnline},
		Specialties:       []Specialty{{ID: "s-1"}, {ID: "s-2"}},
	}

	assert.True(t, th.Offers(ConsultationOnline))
	assert.False(t, th.Offers(ConsultationOffline))
	assert.True(t, th.HasSpecialty("s-2"))
	assert.False(t, th.HasSpecialty("s-3"))
}

func TestAnnouncement_Visible(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name    string
		status  AnnouncementStatus
		publish *time.Time
		expire  *time.Time
		want    bool
	}{
		{"published without window", AnnouncementPublished, nil, nil, true},
		{"published inside window", AnnouncementPublished, &past, &future, true},
		{"scheduled for later", AnnouncementPublished, &future, nil, false},
		{"expired", AnnouncementPublished, nil, &past, false},
		{"expires exactly now", AnnouncementPublished, nil, &now, false},
		{"publishes exactly now", AnnouncementPublished, &now, nil, true},
		{"draft", AnnouncementDraft, nil, nil, false},
		{"archived", AnnouncementArchived, &past, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Announcement{Status: tt.status, PublishDate: tt.publish, ExpireDate: tt.expire}
			assert.Equal(t, tt.want, a.Visible(now))
		})
	}
}

func TestAnnouncementPriority_Valid(t *testing.T) {
	assert.True(t, PriorityLow.Valid())
	assert.True(t, PriorityHigh.Valid())
	assert.False(t, AnnouncementPriority("urgent").Valid())
	assert.False(t, AnnouncementPriority("").Valid())
}

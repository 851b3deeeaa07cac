package notify

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/mindcare-tw/mindcare-backend/pkg/model"
)

var periodLabels = map[model.Period]string{
	model.PeriodMorning:   "上午 (09:00-12:00)",
	model.PeriodAfternoon: "下午 (13:00-17:00)",
	model.PeriodEvening:   "晚上 (18:00-21:00)",
}

// PeriodLabel returns the display text of a period
func PeriodLabel(p model.Period) string {
	if l, ok := periodLabels[p]; ok {
		return l
	}
	return string(p)
}

func consultationLabel(c model.ConsultationType) string {
	if c == model.ConsultationOnline {
		return "線上諮商"
	}
	return "實體諮商"
}

var funcs = template.FuncMap{
	"period":       PeriodLabel,
	"consultation": consultationLabel,
	"date":         func(t time.Time) string { return t.Format("2006-01-02") },
	"datetime":     func(t time.Time) string { return t.Format("2006-01-02 15:04") },
	"therapist": func(a *model.Appointment) string {
		if a.TherapistName != nil {
			return *a.TherapistName
		}
		return "待安排"
	},
}

var templates = template.Must(template.New("").Funcs(funcs).Parse(`
{{define "periods"}}{{range .PreferredPeriods}}{{$d := date .Date}}{{range .Periods}}
   - {{$d}} {{period .}}{{end}}{{else}}
   - 未指定{{end}}{{end}}

{{define "created"}}親愛的管理員，

收到新的預約申請：

申請人：{{.Detail.Name}} ({{.Email}})
心理師：{{therapist .}}
諮商方式：{{consultation .ConsultationType}}
緊急程度：{{.Detail.Urgency}}
偏好時間：{{template "periods" .}}

請登入後台處理此預約。
{{end}}

{{define "received"}}親愛的 {{.Detail.Name}}，

我們已收到您的預約申請，將盡快為您安排。

心理師：{{therapist .}}
諮商方式：{{consultation .ConsultationType}}
偏好時間：{{template "periods" .}}

如需查詢或取消，請使用預約時填寫的 Email 與身分證字號。
{{end}}

{{define "confirmed"}}親愛的用戶，

您的預約已確認！

心理師：{{therapist .}}
確認時間：{{datetime .ConfirmedSlot}}
諮商方式：{{consultation .ConsultationType}}{{if .ConsultationRoom}}
諮商室：{{.ConsultationRoom}}{{end}}

請準時參加諮商，如有任何問題請聯繫我們。

祝您身心健康
{{end}}

{{define "rejected"}}親愛的用戶，

很抱歉，您的預約申請未能安排成功。

申請心理師：{{therapist .}}
申請時間：{{datetime .CreatedAt}}
諮商方式：{{consultation .ConsultationType}}{{if .RejectionReason}}
原因：{{.RejectionReason}}{{end}}

歡迎您重新提出申請。
{{end}}

{{define "cancelled"}}您好，

預約編號 {{.ID}} 已取消。

心理師：{{therapist .}}
諮商方式：{{consultation .ConsultationType}}
{{end}}

{{define "reminder_24h_user"}}親愛的 {{.Detail.Name}}，

提醒您，明天有一場諮商預約：

心理師：{{therapist .}}
時間：{{datetime .ConfirmedSlot}}
諮商方式：{{consultation .ConsultationType}}{{if .ConsultationRoom}}
諮商室：{{.ConsultationRoom}}{{end}}
{{end}}

{{define "reminder_24h_therapist"}}{{therapist .}} 心理師您好，

提醒您，明天有一場諮商預約：

個案：{{.Detail.Name}}
時間：{{datetime .ConfirmedSlot}}
諮商方式：{{consultation .ConsultationType}}{{if .ConsultationRoom}}
諮商室：{{.ConsultationRoom}}{{end}}
{{end}}
`))

func render(name string, appt *model.Appointment) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, appt); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

// AppointmentCreated is sent to the clinic inbox when a booking arrives
func AppointmentCreated(adminEmail string, appt *model.Appointment) (Message, error) {
	body, err := render("created", appt)
	return Message{To: []string{adminEmail}, Subject: "新預約申請 - " + appt.Email, Body: body}, err
}

// AppointmentReceived acknowledges a booking to the client
func AppointmentReceived(appt *model.Appointment) (Message, error) {
	body, err := render("received", appt)
	return Message{To: []string{appt.Email}, Subject: "預約申請已收到", Body: body}, err
}

// AppointmentConfirmed tells the client the scheduled time
func AppointmentConfirmed(appt *model.Appointment) (Message, error) {
	body, err := render("confirmed", appt)
	return Message{To: []string{appt.Email}, Subject: "預約確認通知", Body: body}, err
}

// AppointmentRejected tells the client the request could not be arranged
func AppointmentRejected(appt *model.Appointment) (Message, error) {
	body, err := render("rejected", appt)
	return Message{To: []string{appt.Email}, Subject: "預約申請結果通知", Body: body}, err
}

// AppointmentCancelled goes to the client and, when known, the therapist
func AppointmentCancelled(appt *model.Appointment, therapistEmail *string) (Message, error) {
	to := []string{appt.Email}
	if therapistEmail != nil && *therapistEmail != "" {
		to = append(to, *therapistEmail)
	}
	body, err := render("cancelled", appt)
	return Message{To: to, Subject: fmt.Sprintf("預約取消通知 - 預約編號 %s", appt.ID), Body: body}, err
}

var reminderSubjects = map[model.EmailType]string{
	model.EmailReminderUser:      "預約提醒 - 明天的諮商時間",
	model.EmailReminderTherapist: "預約提醒 - 明天的諮商預約",
}

// Reminder renders a scheduled reminder for its recipient
func Reminder(email model.ScheduledEmail, appt *model.Appointment) (Message, error) {
	subject, ok := reminderSubjects[email.EmailType]
	if !ok {
		return Message{}, fmt.Errorf("unknown email type %q", email.EmailType)
	}
	if appt.ConfirmedSlot == nil {
		return Message{}, fmt.Errorf("appointment %s has no confirmed slot", appt.ID)
	}
	body, err := render(string(email.EmailType), appt)
	return Message{To: []string{email.Recipient}, Subject: subject, Body: body}, err
}

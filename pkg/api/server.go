package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /health)
	GetHealth(c *gin.Context)
	// (GET /api/assessments/tests/)
	ListAssessmentTests(c *gin.Context)
	// (GET /api/assessments/tests/{code}/questions/)
	ListAssessmentQuestions(c *gin.Context, code string)
	// (POST /api/assessments/tests/{code}/responses/)
	SubmitAssessmentResponse(c *gin.Context, code string)
	// (GET /api/assessments/results/)
	ListAssessmentResults(c *gin.Context)
	// (POST /api/appointments/)
	CreateAppointment(c *gin.Context)
	// (POST /api/appointments/query/)
	QueryAppointments(c *gin.Context)
	// (GET /api/appointments/pending/)
	ListPendingAppointments(c *gin.Context, params ListPendingAppointmentsParams)
	// (GET /api/appointments/{id}/)
	GetAppointment(c *gin.Context, id string)
	// (POST /api/appointments/{id}/cancel/)
	CancelAppointment(c *gin.Context, id string)
	// (POST /api/appointments/{id}/confirm-time/)
	ConfirmAppointmentTime(c *gin.Context, id string)
	// (PATCH /api/appointments/{id}/status/)
	UpdateAppointmentStatus(c *gin.Context, id string)
	// (GET /api/therapists/profiles/)
	ListTherapists(c *gin.Context, params ListTherapistsParams)
	// (GET /api/therapists/profiles/{id}/)
	GetTherapist(c *gin.Context, id string)
	// (POST /api/therapists/profiles/{id}/photo/)
	UploadTherapistPhoto(c *gin.Context, id string)
	// (GET /api/therapists/specialties/)
	ListSpecialties(c *gin.Context)
	// (GET /api/articles/)
	ListArticles(c *gin.Context)
	// (GET /api/articles/{id}/)
	GetArticle(c *gin.Context, id string)
	// (GET /api/announcements/)
	ListAnnouncements(c *gin.Context, params ListAnnouncementsParams)
	// (GET /api/announcements/categories/)
	ListAnnouncementCategories(c *gin.Context)
	// (GET /api/announcements/homepage/)
	GetHomepageAnnouncements(c *gin.Context)
	// (GET /api/announcements/{id}/)
	GetAnnouncement(c *gin.Context, id string)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandler       func(*gin.Context, error, int)
}

type MiddlewareFunc func(c *gin.Context)

func (siw *ServerInterfaceWrapper) run(c *gin.Context, fn func()) {
	for _, middleware := range siw.HandlerMiddlewares {
		middleware(c)
		if c.IsAborted() {
			return
		}
	}
	fn()
}

func (siw *ServerInterfaceWrapper) pathParam(c *gin.Context, name string) (string, bool) {
	var value string
	err := runtime.BindStyledParameterWithOptions("simple", name, c.Param(name), &value, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter %s: %w", name, err), http.StatusBadRequest)
		return "", false
	}
	return value, true
}

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(c *gin.Context) {
	siw.run(c, func() { siw.Handler.GetHealth(c) })
}

// ListAssessmentTests operation middleware
func (siw *ServerInterfaceWrapper) ListAssessmentTests(c *gin.Context) {
	siw.run(c, func() { siw.Handler.ListAssessmentTests(c) })
}

// ListAssessmentQuestions operation middleware
func (siw *ServerInterfaceWrapper) ListAssessmentQuestions(c *gin.Context) {
	code, ok := siw.pathParam(c, "code")
	if !ok {
		return
	}
	siw.run(c, func() { siw.Handler.ListAssessmentQuestions(c, code) })
}

// SubmitAssessmentResponse operation middleware
func (siw *ServerInterfaceWrapper) SubmitAssessmentResponse(c *gin.Context) {
	code, ok := siw.pathParam(c, "code")
	if !ok {
		return
	}
	siw.run(c, func() { siw.Handler.SubmitAssessmentResponse(c, code) })
}

// ListAssessmentResults operation middleware
func (siw *ServerInterfaceWrapper) ListAssessmentResults(c *gin.Context) {
	siw.run(c, func() { siw.Handler.ListAssessmentResults(c) })
}

// CreateAppointment operation middleware
func (siw *ServerInterfaceWrapper) CreateAppointment(c *gin.Context) {
	siw.run(c, func() { siw.Handler.CreateAppointment(c) })
}

// QueryAppointments operation middleware
func (siw *ServerInterfaceWrapper) QueryAppointments(c *gin.Context) {
	siw.run(c, func() { siw.Handler.QueryAppointments(c) })
}

// ListPendingAppointments operation middleware
func (siw *ServerInterfaceWrapper) ListPendingAppointments(c *gin.Context) {
	var params ListPendingAppointmentsParams

	err := runtime.BindQueryParameter("form", true, false, "therapist", c.Request.URL.Query(), &params.Therapist)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter therapist: %w", err), http.StatusBadRequest)
		return
	}

	siw.run(c, func() { siw.Handler.ListPendingAppointments(c, params) })
}

// GetAppointment operation middleware
func (siw *ServerInterfaceWrapper) GetAppointment(c *gin.Context) {
	id, ok := siw.pathParam(c, "id")
	if !ok {
		return
	}
	siw.run(c, func() { siw.Handler.GetAppointment(c, id) })
}

// CancelAppointment operation middleware
func (siw *ServerInterfaceWrapper) CancelAppointment(c *gin.Context) {
	id, ok := siw.pathParam(c, "id")
	if !ok {
		return
	}
	siw.run(c, func() { siw.Handler.CancelAppointment(c, id) })
}

// ConfirmAppointmentTime operation middleware
func (siw *ServerInterfaceWrapper) ConfirmAppointmentTime(c *gin.Context) {
	id, ok := siw.pathParam(c, "id")
	if !ok {
		return
	}
	siw.run(c, func() { siw.Handler.ConfirmAppointmentTime(c, id) })
}

// UpdateAppointmentStatus operation middleware
func (siw *ServerInterfaceWrapper) UpdateAppointmentStatus(c *gin.Context) {
	id, ok := siw.pathParam(c, "id")
	if !ok {
		return
	}
	siw.run(c, func() { siw.Handler.UpdateAppointmentStatus(c, id) })
}

// ListTherapists operation middleware
func (siw *ServerInterfaceWrapper) ListTherapists(c *gin.Context) {
	var params ListTherapistsParams

	err := runtime.BindQueryParameter("form", true, false, "specialty", c.Request.URL.Query(), &params.Specialty)
	if err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter specialty: %w", err), http.StatusBadRequest)
		return
	}

	siw.run(c, func() { siw.Handler.ListTherapists(c, params) })
}

// GetTherapist operation middleware
func (siw *ServerInterfaceWrapper) GetTherapist(c *gin.Context) {
	id, ok := siw.pathParam(c, "id")
	if !ok {
		return
	}
	siw.run(c, func() { siw.Handler.GetTherapist(c, id) })
}

// UploadTherapistPhoto operation middleware
func (siw *ServerInterfaceWrapper) UploadTherapistPhoto(c *gin.Context) {
	id, ok := siw.pathParam(c, "id")
	if !ok {
		return
	}
	siw.run(c, func() { siw.Handler.UploadTherapistPhoto(c, id) })
}

// ListSpecialties operation middleware
func (siw *ServerInterfaceWrapper) ListSpecialties(c *gin.Context) {
	siw.run(c, func() { siw.Handler.ListSpecialties(c) })
}

// ListArticles operation middleware
func (siw *ServerInterfaceWrapper) ListArticles(c *gin.Context) {
	siw.run(c, func() { siw.Handler.ListArticles(c) })
}

// GetArticle operation middleware
func (siw *ServerInterfaceWrapper) GetArticle(c *gin.Context) {
	id, ok := siw.pathParam(c, "id")
	if !ok {
		return
	}
	siw.run(c, func() { siw.Handler.GetArticle(c, id) })
}

// ListAnnouncements operation middleware
func (siw *ServerInterfaceWrapper) ListAnnouncements(c *gin.Context) {
	var params ListAnnouncementsParams
	query := c.Request.URL.Query()

	if err := runtime.BindQueryParameter("form", true, false, "category", query, &params.Category); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter category: %w", err), http.StatusBadRequest)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "priority", query, &params.Priority); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter priority: %w", err), http.StatusBadRequest)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "pinned", query, &params.Pinned); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter pinned: %w", err), http.StatusBadRequest)
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "q", query, &params.Q); err != nil {
		siw.ErrorHandler(c, fmt.Errorf("Invalid format for parameter q: %w", err), http.StatusBadRequest)
		return
	}

	siw.run(c, func() { siw.Handler.ListAnnouncements(c, params) })
}

// ListAnnouncementCategories operation middleware
func (siw *ServerInterfaceWrapper) ListAnnouncementCategories(c *gin.Context) {
	siw.run(c, func() { siw.Handler.ListAnnouncementCategories(c) })
}

// GetHomepageAnnouncements operation middleware
func (siw *ServerInterfaceWrapper) GetHomepageAnnouncements(c *gin.Context) {
	siw.run(c, func() { siw.Handler.GetHomepageAnnouncements(c) })
}

// GetAnnouncement operation middleware
func (siw *ServerInterfaceWrapper) GetAnnouncement(c *gin.Context) {
	id, ok := siw.pathParam(c, "id")
	if !ok {
		return
	}
	siw.run(c, func() { siw.Handler.GetAnnouncement(c, id) })
}

// GinServerOptions provides options for the Gin server.
type GinServerOptions struct {
	BaseURL      string
	Middlewares  []MiddlewareFunc
	ErrorHandler func(*gin.Context, error, int)
}

// RegisterHandlers creates http.Handler with routing matching OpenAPI spec.
func RegisterHandlers(router gin.IRouter, si ServerInterface) {
	RegisterHandlersWithOptions(router, si, GinServerOptions{})
}

// RegisterHandlersWithOptions creates http.Handler with additional options
func RegisterHandlersWithOptions(router gin.IRouter, si ServerInterface, options GinServerOptions) {
	errorHandler := options.ErrorHandler
	if errorHandler == nil {
		errorHandler = func(c *gin.Context, err error, statusCode int) {
			c.JSON(statusCode, ErrorResponse{Code: ErrorCodeValidation, Message: err.Error()})
		}
	}

	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandler:       errorHandler,
	}

	router.GET(options.BaseURL+"/health", wrapper.GetHealth)
	router.GET(options.BaseURL+"/api/assessments/tests/", wrapper.ListAssessmentTests)
	router.GET(options.BaseURL+"/api/assessments/tests/:code/questions/", wrapper.ListAssessmentQuestions)
	router.POST(options.BaseURL+"/api/assessments/tests/:code/responses/", wrapper.SubmitAssessmentResponse)
	router.GET(options.BaseURL+"/api/assessments/results/", wrapper.ListAssessmentResults)
	router.POST(options.BaseURL+"/api/appointments/", wrapper.CreateAppointment)
	router.POST(options.BaseURL+"/api/appointments/query/", wrapper.QueryAppointments)
	router.GET(options.BaseURL+"/api/appointments/pending/", wrapper.ListPendingAppointments)
	router.GET(options.BaseURL+"/api/appointments/:id/", wrapper.GetAppointment)
	router.POST(options.BaseURL+"/api/appointments/:id/cancel/", wrapper.CancelAppointment)
	router.POST(options.BaseURL+"/api/appointments/:id/confirm-time/", wrapper.ConfirmAppointmentTime)
	router.PATCH(options.BaseURL+"/api/appointments/:id/status/", wrapper.UpdateAppointmentStatus)
	router.GET(options.BaseURL+"/api/therapists/profiles/", wrapper.ListTherapists)
	router.GET(options.BaseURL+"/api/therapists/profiles/:id/", wrapper.GetTherapist)
	router.POST(options.BaseURL+"/api/therapists/profiles/:id/photo/", wrapper.UploadTherapistPhoto)
	router.GET(options.BaseURL+"/api/therapists/specialties/", wrapper.ListSpecialties)
	router.GET(options.BaseURL+"/api/articles/", wrapper.ListArticles)
	router.GET(options.BaseURL+"/api/articles/:id/", wrapper.GetArticle)
	router.GET(options.BaseURL+"/api/announcements/", wrapper.ListAnnouncements)
	router.GET(options.BaseURL+"/api/announcements/categories/", wrapper.ListAnnouncementCategories)
	router.GET(options.BaseURL+"/api/announcements/homepage/", wrapper.GetHomepageAnnouncements)
	router.GET(options.BaseURL+"/api/announcements/:id/", wrapper.GetAnnouncement)
}

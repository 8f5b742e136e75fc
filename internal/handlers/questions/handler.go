package questions

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"gitlab.com/offlinejudge.net/internal/core/ports/primary"
	"gitlab.com/offlinejudge.net/internal/core/services/catalog"
	"gitlab.com/offlinejudge.net/internal/core/services/judge"
	"gitlab.com/offlinejudge.net/internal/handlers"
	"gitlab.com/offlinejudge.net/internal/handlers/response"
	"gitlab.com/offlinejudge.net/internal/static/errs"
)

// bodyOverhead leaves room for JSON escaping of the largest accepted source
const bodyOverhead = 4096

type Options struct {
	MaxSourceBytes int
	AllowedOrigins []string
}

// QuestionHandler serves the catalog and grades submissions
type QuestionHandler struct {
	catalogService catalog.ICatalogService
	judgeService   judge.IJudgeService
	middleware     *handlers.MiddlewareProvider
	validate       *validator.Validate
	opts           Options
	logger         primary.Logger
}

func NewQuestionHandler(
	catalogService catalog.ICatalogService,
	judgeService judge.IJudgeService,
	middleware *handlers.MiddlewareProvider,
	opts Options,
	logger primary.Logger,
) *QuestionHandler {
	return &QuestionHandler{
		catalogService: catalogService,
		judgeService:   judgeService,
		middleware:     middleware,
		validate:       newValidator(),
		opts:           opts,
		logger:         logger,
	}
}

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	// report json field names in validation errors
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

// RegisterRoutes registers the API routes for QuestionHandler
func (h *QuestionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/questions", h.ListQuestions).Methods(http.MethodGet)
	router.Handle("/api/questions/run", h.middleware.JWTMiddleware(http.HandlerFunc(h.RunCandidate))).Methods(http.MethodPost)
	router.HandleFunc("/api/questions/{id}", h.GetQuestion).Methods(http.MethodGet)
	router.HandleFunc("/api/questions/{id}/template", h.GetTemplate).Methods(http.MethodGet)
	router.Handle("/api/questions/{id}/stream", h.middleware.JWTMiddleware(http.HandlerFunc(h.Stream))).Methods(http.MethodGet)
}

func (h *QuestionHandler) ListQuestions(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.catalogService.ListProblems(r.Context())
	if err != nil {
		h.logger.Error("Failed to list problems", "requestId", handlers.RequestID(r.Context()), "error", err)
		response.WriteServiceError(w, err)
		return
	}
	response.WriteSuccess(w, summaries)
}

func (h *QuestionHandler) GetQuestion(w http.ResponseWriter, r *http.Request) {
	problem, err := h.catalogService.GetProblem(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.logFailure(r, "Failed to get problem", err)
		response.WriteServiceError(w, err)
		return
	}
	response.WriteSuccess(w, problem)
}

func (h *QuestionHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	problem, err := h.catalogService.GetProblem(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.logFailure(r, "Failed to get problem", err)
		response.WriteServiceError(w, err)
		return
	}
	response.WriteSuccess(w, TemplateResponse{
		ID:           problem.ID,
		FunctionName: problem.FunctionName,
		Template:     problem.Template,
	})
}

// RunCandidate grades a submission. Every graded run answers 200, including
// runs whose report carries a global error.
func (h *QuestionHandler) RunCandidate(w http.ResponseWriter, r *http.Request) {
	if h.opts.MaxSourceBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(2*h.opts.MaxSourceBytes+bodyOverhead))
	}

	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.WriteServiceError(w, fmt.Errorf("%w: request body exceeds %d bytes", errs.ErrSourceTooLarge, tooLarge.Limit))
			return
		}
		h.logger.Error("Failed to decode request", "requestId", handlers.RequestID(r.Context()), "error", err)
		response.WriteServiceError(w, fmt.Errorf("%w: %v", errs.ErrInvalidRequest, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.WriteServiceError(w, fmt.Errorf("%w: %v", errs.ErrInvalidRequest, err))
		return
	}

	report, err := h.judgeService.RunCandidate(r.Context(), req.ProblemID, req.Code)
	if err != nil {
		h.logFailure(r, "Failed to run candidate", err)
		response.WriteServiceError(w, err)
		return
	}
	response.WriteSuccess(w, report)
}

func (h *QuestionHandler) logFailure(r *http.Request, msg string, err error) {
	if response.StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error(msg, "requestId", handlers.RequestID(r.Context()), "error", err)
		return
	}
	h.logger.Debug(msg, "requestId", handlers.RequestID(r.Context()), "error", err)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"time"

	"gator-overflow/internal/engine"
	"gator-overflow/internal/middleware"
	"gator-overflow/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Server holds all server dependencies, including the actor system and engine
type Server struct {
	System         *actor.ActorSystem
	Context        *actor.RootContext
	Engine         *engine.Engine
	Metrics        *utils.MetricsCollector
	Auth           *middleware.Authenticator
	Logger         *zap.Logger
	Validate       *validator.Validate
	RequestTimeout time.Duration
	MaxImageSize   int64
}

// NewServer creates a new Server instance with the given components
func NewServer(
	system *actor.ActorSystem,
	engine *engine.Engine,
	metrics *utils.MetricsCollector,
	auth *middleware.Authenticator,
	logger *zap.Logger,
	requestTimeout time.Duration,
	maxImageSize int64,
) *Server {
	if requestTimeout <= 0 {
		requestTimeout = 5 * time.Second // Default timeout for actor requests
	}
	return &Server{
		System:         system,
		Context:        system.Root,
		Engine:         engine,
		Metrics:        metrics,
		Auth:           auth,
		Logger:         logger,
		Validate:       newValidator(),
		RequestTimeout: requestTimeout,
		MaxImageSize:   maxImageSize,
	}
}

// NewRouter registers every route and wraps the router in the middleware
// chain: CORS, then request logging, then identity checks.
func (s *Server) NewRouter(allowedOrigins []string, metricsEnabled bool) http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.HandleHealth()).Methods(http.MethodGet)

	// Posts and answers
	api.HandleFunc("/posts", s.HandleListPosts()).Methods(http.MethodGet)
	api.HandleFunc("/posts", s.HandleCreatePost()).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id}", s.HandleGetPost()).Methods(http.MethodGet)
	api.HandleFunc("/posts/{id}", s.HandleUpdatePost()).Methods(http.MethodPatch)
	api.HandleFunc("/posts/{id}", s.HandleDeletePost()).Methods(http.MethodDelete)
	api.HandleFunc("/posts/{id}/answers", s.HandleAddAnswer()).Methods(http.MethodPost)
	api.HandleFunc("/posts/{id}/upvote", s.HandleTogglePostUpvote()).Methods(http.MethodPost)
	api.HandleFunc("/posts/{postId}/answers/{answerId}/upvote", s.HandleToggleAnswerUpvote()).Methods(http.MethodPost)

	// Tags
	api.HandleFunc("/tags", s.HandleListTags()).Methods(http.MethodGet)
	api.HandleFunc("/tags", s.HandleUpsertTags()).Methods(http.MethodPost)
	api.HandleFunc("/tags/{name}", s.HandleGetTag()).Methods(http.MethodGet)
	api.HandleFunc("/tags/{id}", s.HandleDeleteTag()).Methods(http.MethodDelete)

	// Users
	api.HandleFunc("/users", s.HandleUpsertUser()).Methods(http.MethodPost)
	api.HandleFunc("/users/{uid}", s.HandleGetUser()).Methods(http.MethodGet)
	api.HandleFunc("/users/{uid}/profile", s.HandleUpdateProfile()).Methods(http.MethodPatch)
	api.HandleFunc("/users/{uid}/notifications", s.HandleUpdateNotifications()).Methods(http.MethodPatch)
	api.HandleFunc("/users/{uid}/appearance", s.HandleUpdateAppearance()).Methods(http.MethodPatch)
	api.HandleFunc("/users/{uid}/profile/image", s.HandleUploadProfileImage()).Methods(http.MethodPost)
	api.HandleFunc("/users/{uid}/profile/image", s.HandleClearProfileImage()).Methods(http.MethodDelete)

	if metricsEnabled && s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler()).Methods(http.MethodGet)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Route not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	var handler http.Handler = r
	handler = s.Auth.AuthMiddleware(handler)
	handler = middleware.RequestLogger(s.Logger, s.Metrics)(handler)
	handler = middleware.CORSMiddleware(middleware.DefaultCORSConfig(allowedOrigins))(handler)
	return handler
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeAppError maps an AppError onto a status. Server-side details stay in
// the log.
func (s *Server) writeAppError(w http.ResponseWriter, appErr *utils.AppError) {
	status := utils.AppErrorToHTTPStatus(appErr.Code)
	if !utils.IsClientError(appErr.Code) {
		s.Logger.Error("Request failed", zap.String("code", appErr.Code), zap.Error(appErr))
		writeError(w, "Internal server error", status)
		return
	}
	writeError(w, appErr.Message, status)
}

// ask sends msg to an actor pool and waits for the reply. A timeout or an
// *utils.AppError reply comes back as the error.
func (s *Server) ask(pid *actor.PID, msg interface{}) (interface{}, *utils.AppError) {
	result, err := s.Context.RequestFuture(pid, msg, s.RequestTimeout).Result()
	if err != nil {
		return nil, utils.NewActorTimeoutError(pid.GetId(), err)
	}
	if appErr, ok := result.(*utils.AppError); ok {
		return nil, appErr
	}
	return result, nil
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return validate
}

// decodeAndValidate reads a JSON body into req and runs its validate tags.
func (s *Server) decodeAndValidate(r *http.Request, req interface{}) *utils.AppError {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return utils.NewValidationError("Invalid request body")
	}
	if err := s.Validate.Struct(req); err != nil {
		return utils.NewValidationError(validationMessage(err))
	}
	return nil
}

// validationMessage turns validator errors into "field is required" style text.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return "Invalid request"
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			messages = append(messages, field+" is required")
		case "min":
			messages = append(messages, field+" must have at least "+fe.Param()+" entries")
		default:
			messages = append(messages, field+" is invalid")
		}
	}
	return strings.Join(messages, "; ")
}

// authorize rejects requests acting for a uid other than the token subject.
// Without identity checks every request is allowed.
func (s *Server) authorize(r *http.Request, uid string) *utils.AppError {
	if !s.Auth.Enabled() {
		return nil
	}
	subject, ok := middleware.GetUIDFromContext(r.Context())
	if !ok {
		return utils.NewAppError(utils.ErrUnauthorized, "Authentication required", nil)
	}
	if subject != uid {
		return utils.NewAppError(utils.ErrForbidden, "Cannot act on behalf of another user", nil)
	}
	return nil
}

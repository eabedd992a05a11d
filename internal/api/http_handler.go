package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"cafe-pos-service/internal/access"
	"cafe-pos-service/internal/admin"
	"cafe-pos-service/internal/domain"
	"cafe-pos-service/internal/errx"
	"cafe-pos-service/internal/identity"
	"cafe-pos-service/internal/logx"
	"cafe-pos-service/internal/pos"
)

// SessionService is the identity provider as seen by the HTTP layer.
type SessionService interface {
	SignIn(ctx context.Context, creds identity.Credentials) (*domain.Session, string, error)
	SignUp(ctx context.Context, creds identity.Credentials) (*domain.Session, string, error)
	SignInWithGoogle(ctx context.Context, idToken, origin string) (*domain.Session, string, error)
	EnterGuest(ctx context.Context) (*domain.Session, string, error)
	SignOut(ctx context.Context, session *domain.Session) error
	CurrentSession(ctx context.Context, token string) (*domain.Session, error)
}

// AdminGate guards the management routes.
type AdminGate interface {
	Verify(ctx context.Context, session *domain.Session, email, password string) error
	Leave(ctx context.Context, session *domain.Session) error
	Permissions(ctx context.Context, session *domain.Session) (access.Permissions, error)
}

// Deps are the collaborators of HTTPHandler.
type Deps struct {
	Catalog         *pos.Catalog
	Terminals       *pos.Registry
	Sessions        SessionService
	Gate            AdminGate
	Admin           *admin.Service
	DefaultCategory string
	QRBaseURL       string
	MaxUploadBytes  int64
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	catalog         *pos.Catalog
	terminals       *pos.Registry
	sessions        SessionService
	gate            AdminGate
	admin           *admin.Service
	defaultCategory string
	qrBaseURL       string
	maxUploadBytes  int64
	validate        *validator.Validate
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(deps Deps) *HTTPHandler {
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 10 << 20
	}
	validate := validator.New()
	_ = validate.RegisterValidation("product_status", func(fl validator.FieldLevel) bool {
		return domain.ProductStatus(fl.Field().String()).Valid()
	})
	return &HTTPHandler{
		catalog:         deps.Catalog,
		terminals:       deps.Terminals,
		sessions:        deps.Sessions,
		gate:            deps.Gate,
		admin:           deps.Admin,
		defaultCategory: deps.DefaultCategory,
		qrBaseURL:       deps.QRBaseURL,
		maxUploadBytes:  maxUpload,
		validate:        validate,
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

// respondWithAppError writes err with the status, message and code of its
// errx classification. Unclassified errors become a generic 500.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := errx.StatusOf(err)
	resp := ErrorResponse{Error: errx.MessageOf(err), Code: string(errx.CodeInternal)}
	if e, ok := errx.As(err); ok {
		resp.Code = string(e.Code)
	}
	event := logx.Warn()
	if status >= http.StatusInternalServerError {
		event = logx.Error()
	}
	event.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	respondWithJSON(w, status, resp)
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			logx.Error().Err(err).Msg("failed to encode JSON response")
		}
	}
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
func (h *HTTPHandler) decodeAndValidate(r *http.Request, dst interface{}) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errx.Wrap(errx.WithMessage(errx.ErrBadRequest, "invalid request payload"), err)
	}
	if err := h.validate.Struct(dst); err != nil {
		return errx.Wrap(errx.WithMessage(errx.ErrBadRequest, "validation failed: "+err.Error()), err)
	}
	return nil
}

// --- Session middleware ---

type sessionKey struct{}

func sessionFrom(ctx context.Context) *domain.Session {
	s, _ := ctx.Value(sessionKey{}).(*domain.Session)
	return s
}

func bearerToken(r *http.Request) string {
	return parseBearer(r.Header.Get("Authorization"))
}

func parseBearer(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// authenticate resolves the bearer token to a session. Requests without a
// live session are Unauthenticated and may not browse.
func (h *HTTPHandler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := h.sessions.CurrentSession(r.Context(), bearerToken(r))
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	})
}

// requireMember refuses guest sessions.
func (h *HTTPHandler) requireMember(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if access.ModeOf(sessionFrom(r.Context())) != access.Authenticated {
			respondWithAppError(w, r, errx.ErrForbiddenMode)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAdmin refuses sessions outside the allow-list.
func (h *HTTPHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		perms, err := h.gate.Permissions(r.Context(), sessionFrom(r.Context()))
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		if !perms.IsAdmin() {
			respondWithAppError(w, r, errx.ErrNotAdmin)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireVerified refuses admins that have not passed the gate.
func (h *HTTPHandler) requireVerified(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		perms, err := h.gate.Permissions(r.Context(), sessionFrom(r.Context()))
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		if !perms.CanManage() {
			respondWithAppError(w, r, errx.ErrNotVerified)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// --- Route Registration ---

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusNotFound, "route not found")
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/signup", h.SignUp)
		r.Post("/signin", h.SignIn)
		r.Post("/google", h.SignInWithGoogle)
		r.Post("/guest", h.EnterGuest)
		r.Group(func(r chi.Router) {
			r.Use(h.authenticate)
			r.Post("/signout", h.SignOut)
			r.Get("/session", h.GetSession)
		})
	})

	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Use(h.authenticate)
		r.Get("/products", h.ListCatalogProducts)
		r.Get("/categories", h.ListCatalogCategories)
	})

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(h.authenticate, h.requireMember)
		r.Get("/", h.GetCart)
		r.Delete("/", h.ClearCart)
		r.Post("/items", h.AddCartItem)
		r.Route("/items/{productId}", func(r chi.Router) {
			r.Patch("/", h.ChangeCartQuantity)
			r.Delete("/", h.RemoveCartItem)
		})
		r.Get("/payment-qr", h.GetPaymentQR)
		r.Post("/checkout", h.Checkout)
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(h.authenticate, h.requireMember, h.requireAdmin)
		r.Post("/verify", h.VerifyAdmin)
		r.Delete("/verify", h.LeaveAdmin)

		r.Group(func(r chi.Router) {
			r.Use(h.requireVerified)
			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.ListAdminProducts)
				r.Post("/", h.CreateProduct)
				r.Route("/{productId}", func(r chi.Router) {
					r.Put("/", h.ReplaceProduct)
					r.Patch("/", h.UpdateProduct)
					r.Delete("/", h.DeleteProduct)
					r.Put("/status", h.SetProductStatus)
				})
			})
			r.Route("/categories", func(r chi.Router) {
				r.Get("/", h.ListAdminCategories)
				r.Post("/", h.CreateCategory)
				r.Route("/{categoryId}", func(r chi.Router) {
					r.Put("/", h.UpdateCategory)
					r.Delete("/", h.DeleteCategory)
				})
			})
			r.Post("/uploads", h.UploadImage)
			r.Post("/describe", h.SuggestDescription)
		})
	})
}

package iam

import (
	"fmt"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

const (
	// DefaultPageSize is the page size when the query omits one
	DefaultPageSize = 10
	// MaxPageSize caps the page size query parameter
	MaxPageSize = 100
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Post(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Put(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Delete(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
	Patch(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPController exposes the JSON API: registration, sign in, self
// profile and the admin user management surface.
type HTTPController struct {
	Debug   bool
	Logger  Logger
	Repo    RepositoryManager
	Auther  *Auther
	Tokens  TokenService
	Limiter RateLimiter
	Config  Config
}

// ControllerOption configures the HTTPController
type ControllerOption func(*HTTPController) *HTTPController

// WithControllerDebug enables payload dumps on registered routes
func WithControllerDebug(debug bool) ControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Debug = debug
		return c
	}
}

// WithControllerLogger sets the controller logger
func WithControllerLogger(logger Logger) ControllerOption {
	return func(c *HTTPController) *HTTPController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithControllerLimiter sets the rate limiter guarding every route
func WithControllerLimiter(limiter RateLimiter) ControllerOption {
	return func(c *HTTPController) *HTTPController {
		c.Limiter = limiter
		return c
	}
}

// NewHTTPController creates the controller. Repo, Auther, Tokens and
// Config are required.
func NewHTTPController(repo RepositoryManager, auther *Auther, tokens TokenService, cfg Config, opts ...ControllerOption) *HTTPController {
	controller := &HTTPController{
		Logger: defLogger{},
		Repo:   repo,
		Auther: auther,
		Tokens: tokens,
		Config: cfg,
	}

	for _, opt := range opts {
		if opt != nil {
			controller = opt(controller)
		}
	}

	if controller.Repo == nil {
		panic("iam: controller requires a repository manager")
	}
	if controller.Auther == nil {
		panic("iam: controller requires an authenticator")
	}
	if controller.Tokens == nil {
		panic("iam: controller requires a token service")
	}
	if controller.Config == nil {
		panic("iam: controller requires a config")
	}

	return controller
}

// RegisterRoutes wires the API surface. Every route except the health
// check goes through the rate limiter.
func (c *HTTPController) RegisterRoutes(app RouteRegistrar) {
	authErrors := MakeAuthErrorHandler(c.Logger, c.respondError)

	limited := RateLimit(c.Limiter, c.respondError)
	protected := ProtectedRoute(c.Tokens, c.Config, authErrors)
	admin := AdminRoute(c.Config, c.respondError)

	app.Post("/auth/signUp", c.SignUp, limited)
	app.Post("/auth/signIn", c.SignIn, limited)

	app.Get("/users/me", c.ProfileShow, limited, protected)
	app.Put("/users/me", c.ProfileUpdate, limited, protected)

	app.Post("/users", c.AdminCreate, limited, protected, admin)
	app.Get("/users", c.AdminIndex, limited, protected, admin)
	app.Get("/users/:id", c.AdminShow, limited, protected, admin)
	app.Put("/users/:id", c.AdminUpdate, limited, protected, admin)
	app.Delete("/users/:id", c.AdminDelete, limited, protected, admin)
	app.Patch("/users/:id/status", c.AdminStatus, limited, protected, admin)

	app.Get("/health", c.Health)
}

// UserResponse is the wire representation of a user record. The
// password hash never leaves the service.
type UserResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	Phone     string     `json:"phone_number,omitempty"`
	Role      string     `json:"user_role"`
	IsActive  bool       `json:"is_active"`
	IsAdmin   bool       `json:"is_admin"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func newUserResponse(user *User) UserResponse {
	if user == nil {
		return UserResponse{}
	}
	return UserResponse{
		ID:        user.ID.String(),
		Email:     user.Email,
		FullName:  user.FullName,
		Phone:     user.Phone,
		Role:      string(user.Role),
		IsActive:  user.Active,
		IsAdmin:   user.IsAdmin(),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// TokenResponse is the sign in payload
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// UserListResponse is the paginated admin listing payload
type UserListResponse struct {
	Users []UserResponse `json:"users"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
}

// SignUpRequest is the registration payload
type SignUpRequest struct {
	Email    string `json:"email" form:"email"`
	FullName string `json:"full_name" form:"full_name"`
	Phone    string `json:"phone_number" form:"phone_number"`
	Password string `json:"password" form:"password"`
}

// Validate runs payload validations
func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber)),
		validation.Field(&r.Password, validation.Required, validation.By(PasswordPolicyRule())),
	)
}

// SignInRequest is the credential payload
type SignInRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// Validate runs payload validations
func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// ProfileUpdateRequest carries a partial self profile update. Pointer
// fields distinguish absent from empty. Role and status fields are
// declared only to detect privilege escalation attempts.
type ProfileUpdateRequest struct {
	Email    *string `json:"email" form:"email"`
	FullName *string `json:"full_name" form:"full_name"`
	Phone    *string `json:"phone_number" form:"phone_number"`
	Role     *string `json:"user_role" form:"user_role"`
	Active   *bool   `json:"is_active" form:"is_active"`
	IsAdmin  *bool   `json:"is_admin" form:"is_admin"`
}

// Validate runs payload validations on the supplied fields
func (r ProfileUpdateRequest) Validate() error {
	fields := []*validation.FieldRules{}
	if r.Email != nil {
		fields = append(fields, validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email))
	}
	if r.FullName != nil {
		fields = append(fields, validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)))
	}
	if r.Phone != nil {
		fields = append(fields, validation.Field(&r.Phone, validation.By(ValidatePhoneNumberPtr)))
	}
	if len(fields) == 0 {
		return nil
	}
	return validation.ValidateStruct(&r, fields...)
}

// HasPrivilegedFields reports whether the payload tries to change
// role or status.
func (r ProfileUpdateRequest) HasPrivilegedFields() bool {
	return r.Role != nil || r.Active != nil || r.IsAdmin != nil
}

// AdminCreateRequest is the admin facing registration payload
type AdminCreateRequest struct {
	SignUpRequest
	Role   string `json:"user_role" form:"user_role"`
	Active *bool  `json:"is_active" form:"is_active"`
}

// Validate runs payload validations
func (r AdminCreateRequest) Validate() error {
	if err := r.SignUpRequest.Validate(); err != nil {
		return err
	}
	if r.Role == "" {
		return nil
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Role, validation.In(rolesAsAny()...)),
	)
}

// AdminUpdateRequest carries a partial admin update of any account.
// Status changes go through the dedicated status endpoint.
type AdminUpdateRequest struct {
	Email    *string `json:"email" form:"email"`
	FullName *string `json:"full_name" form:"full_name"`
	Phone    *string `json:"phone_number" form:"phone_number"`
	Role     *string `json:"user_role" form:"user_role"`
}

// Validate runs payload validations on the supplied fields
func (r AdminUpdateRequest) Validate() error {
	fields := []*validation.FieldRules{}
	if r.Email != nil {
		fields = append(fields, validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email))
	}
	if r.FullName != nil {
		fields = append(fields, validation.Field(&r.FullName, validation.Required, validation.Length(1, 200)))
	}
	if r.Phone != nil {
		fields = append(fields, validation.Field(&r.Phone, validation.By(ValidatePhoneNumberPtr)))
	}
	if r.Role != nil {
		fields = append(fields, validation.Field(&r.Role, validation.In(rolesAsAny()...)))
	}
	if len(fields) == 0 {
		return nil
	}
	return validation.ValidateStruct(&r, fields...)
}

// StatusUpdateRequest toggles an account's active flag
type StatusUpdateRequest struct {
	Active *bool `json:"is_active" form:"is_active"`
}

// Validate runs payload validations
func (r StatusUpdateRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Active, validation.NotNil),
	)
}

// SignUp handles POST /auth/signUp
func (c *HTTPController) SignUp(ctx router.Context) error {
	payload := new(SignUpRequest)

	if err := ctx.Bind(payload); err != nil {
		return c.respondBadPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.respondValidation(ctx, err)
	}

	if c.Debug {
		fmt.Println(print.MaybePrettyJSON(payload))
	}

	user, err := c.Auther.SignUp(ctx.Context(), SignUpMessage{
		Email:    payload.Email,
		FullName: payload.FullName,
		Phone:    payload.Phone,
		Password: payload.Password,
	})
	if err != nil {
		return c.respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, newUserResponse(user))
}

// SignIn handles POST /auth/signIn
func (c *HTTPController) SignIn(ctx router.Context) error {
	payload := new(SignInRequest)

	if err := ctx.Bind(payload); err != nil {
		return c.respondBadPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.respondValidation(ctx, err)
	}

	token, err := c.Auther.SignIn(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		return c.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// ProfileShow handles GET /users/me
func (c *HTTPController) ProfileShow(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, c.Config.GetContextKey())
	if !ok {
		return c.respondError(ctx, ErrTokenMissingOrMalformed)
	}

	user, err := c.Repo.Users().GetByID(ctx.Context(), claims.UserID())
	if err != nil {
		return c.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, newUserResponse(user))
}

// ProfileUpdate handles PUT /users/me. Role and status fields in the
// payload are rejected even for admins, the admin surface owns those.
func (c *HTTPController) ProfileUpdate(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, c.Config.GetContextKey())
	if !ok {
		return c.respondError(ctx, ErrTokenMissingOrMalformed)
	}

	payload := new(ProfileUpdateRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.respondBadPayload(ctx, err)
	}

	if payload.HasPrivilegedFields() {
		return c.respondError(ctx, ErrForbidden)
	}

	if err := payload.Validate(); err != nil {
		return c.respondValidation(ctx, err)
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return c.respondError(ctx, ErrTokenMalformed)
	}

	record := &User{ID: id}
	if payload.Email != nil {
		if err := c.ensureEmailAvailable(ctx, *payload.Email, id); err != nil {
			return c.respondError(ctx, err)
		}
		record.Email = *payload.Email
	}
	if payload.FullName != nil {
		record.FullName = *payload.FullName
	}
	if payload.Phone != nil {
		record.Phone = *payload.Phone
	}

	user, err := c.Repo.Users().UpdatePartial(ctx.Context(), record)
	if err != nil {
		return c.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, newUserResponse(user))
}

// AdminCreate handles POST /users
func (c *HTTPController) AdminCreate(ctx router.Context) error {
	payload := new(AdminCreateRequest)

	if err := ctx.Bind(payload); err != nil {
		return c.respondBadPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.respondValidation(ctx, err)
	}

	user, err := c.Auther.SignUp(ctx.Context(), SignUpMessage{
		Email:    payload.Email,
		FullName: payload.FullName,
		Phone:    payload.Phone,
		Password: payload.Password,
		Role:     UserRole(payload.Role),
		Active:   payload.Active,
	})
	if err != nil {
		return c.respondError(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, newUserResponse(user))
}

// AdminIndex handles GET /users with page/size pagination
func (c *HTTPController) AdminIndex(ctx router.Context) error {
	page := queryInt(ctx, "page", 1)
	if page < 1 {
		page = 1
	}

	size := queryInt(ctx, "size", DefaultPageSize)
	if size < 1 {
		size = 1
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	users, total, err := c.Repo.Users().List(ctx.Context(), size, (page-1)*size)
	if err != nil {
		return c.respondError(ctx, err)
	}

	records := make([]UserResponse, 0, len(users))
	for _, user := range users {
		records = append(records, newUserResponse(user))
	}

	return ctx.JSON(router.StatusOK, UserListResponse{
		Users: records,
		Total: total,
		Page:  page,
		Size:  size,
	})
}

// AdminShow handles GET /users/:id
func (c *HTTPController) AdminShow(ctx router.Context) error {
	id, err := c.pathID(ctx)
	if err != nil {
		return c.respondError(ctx, err)
	}

	user, err := c.Repo.Users().GetByID(ctx.Context(), id.String())
	if err != nil {
		return c.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, newUserResponse(user))
}

// AdminUpdate handles PUT /users/:id
func (c *HTTPController) AdminUpdate(ctx router.Context) error {
	id, err := c.pathID(ctx)
	if err != nil {
		return c.respondError(ctx, err)
	}

	payload := new(AdminUpdateRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.respondBadPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.respondValidation(ctx, err)
	}

	// Make sure the target exists so unknown ids map to 404 and not a
	// silent no-op update.
	if _, err := c.Repo.Users().GetByID(ctx.Context(), id.String()); err != nil {
		return c.respondError(ctx, err)
	}

	record := &User{ID: id}
	if payload.Email != nil {
		if err := c.ensureEmailAvailable(ctx, *payload.Email, id); err != nil {
			return c.respondError(ctx, err)
		}
		record.Email = *payload.Email
	}
	if payload.FullName != nil {
		record.FullName = *payload.FullName
	}
	if payload.Phone != nil {
		record.Phone = *payload.Phone
	}
	if payload.Role != nil {
		record.Role = UserRole(*payload.Role)
	}

	user, err := c.Repo.Users().UpdatePartial(ctx.Context(), record)
	if err != nil {
		return c.respondError(ctx, err)
	}

	return ctx.JSON(router.StatusOK, newUserResponse(user))
}

// AdminDelete handles DELETE /users/:id. Admins cannot delete their
// own account.
func (c *HTTPController) AdminDelete(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, c.Config.GetContextKey())
	if !ok {
		return c.respondError(ctx, ErrTokenMissingOrMalformed)
	}

	id, err := c.pathID(ctx)
	if err != nil {
		return c.respondError(ctx, err)
	}

	if err := RequireNotSelf(claims.UserID(), id.String()); err != nil {
		return c.respondError(ctx, err)
	}

	if err := c.Repo.Users().DeleteByID(ctx.Context(), id); err != nil {
		return c.respondError(ctx, err)
	}

	c.Auther.emitAuthEvent(ctx.Context(), ActivityEventUserDeleted, ActorRef{ID: claims.UserID(), Type: "user"}, id.String(), nil)

	return ctx.JSON(router.StatusOK, map[string]string{
		"message": "user deleted",
	})
}

// AdminStatus handles PATCH /users/:id/status. Admins cannot change
// their own status.
func (c *HTTPController) AdminStatus(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx, c.Config.GetContextKey())
	if !ok {
		return c.respondError(ctx, ErrTokenMissingOrMalformed)
	}

	id, err := c.pathID(ctx)
	if err != nil {
		return c.respondError(ctx, err)
	}

	if err := RequireNotSelf(claims.UserID(), id.String()); err != nil {
		return c.respondError(ctx, err)
	}

	payload := new(StatusUpdateRequest)
	if err := ctx.Bind(payload); err != nil {
		return c.respondBadPayload(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return c.respondValidation(ctx, err)
	}

	user, err := c.Repo.Users().UpdateActive(ctx.Context(), id, *payload.Active)
	if err != nil {
		return c.respondError(ctx, err)
	}

	c.Auther.emitAuthEvent(ctx.Context(), ActivityEventUserStatusChanged, ActorRef{ID: claims.UserID(), Type: "user"}, id.String(), map[string]any{
		"is_active": *payload.Active,
	})

	return ctx.JSON(router.StatusOK, newUserResponse(user))
}

// Health handles GET /health
func (c *HTTPController) Health(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (c *HTTPController) pathID(ctx router.Context) (uuid.UUID, error) {
	raw := ctx.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, goerrors.New("invalid user id", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{
				"id": raw,
			})
	}
	return id, nil
}

func (c *HTTPController) ensureEmailAvailable(ctx router.Context, email string, selfID uuid.UUID) error {
	existing, err := c.Repo.Users().GetByEmail(ctx.Context(), email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID == selfID {
		return nil
	}
	return ErrDuplicateEmail
}

func (c *HTTPController) respondBadPayload(ctx router.Context, err error) error {
	return c.respondError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to parse request payload").
		WithCode(goerrors.CodeBadRequest))
}

func (c *HTTPController) respondValidation(ctx router.Context, err error) error {
	return ctx.JSON(fiber.StatusUnprocessableEntity, map[string]any{
		"error": map[string]any{
			"message":   "validation failed",
			"text_code": "VALIDATION_ERROR",
		},
		"validation": FormatValidationErrorToMap(err),
	})
}

func (c *HTTPController) respondError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "internal server error")
	}

	status := richErr.Code
	if status < 400 || status > 599 {
		status = categoryStatus(richErr.Category)
	}

	if status >= 500 {
		c.Logger.Error("request error", "error", err)
		return ctx.JSON(status, map[string]any{
			"error": map[string]any{
				"message":   "internal server error",
				"text_code": "INTERNAL_ERROR",
			},
		})
	}

	body := map[string]any{
		"message": richErr.Message,
	}
	if richErr.TextCode != "" {
		body["text_code"] = richErr.TextCode
	}
	if len(richErr.Metadata) > 0 {
		body["metadata"] = richErr.Metadata
	}

	return ctx.JSON(status, map[string]any{
		"error": body,
	})
}

func categoryStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth:
		return router.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return router.StatusForbidden
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return router.StatusBadRequest
	case goerrors.CategoryRateLimit:
		return fiber.StatusTooManyRequests
	default:
		return router.StatusInternalServerError
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field to message map for API responses.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["payload"] = err.Error()
	return out
}

// ValidatePhoneNumber checks the optional phone field against E.164
// style parsing, empty values pass.
func ValidatePhoneNumber(value any) error {
	phone, _ := value.(string)
	return validatePhone(phone)
}

// ValidatePhoneNumberPtr is the pointer-field variant used by partial
// update payloads. Depending on the rule chain the value arrives as a
// pointer or already dereferenced.
func ValidatePhoneNumberPtr(value any) error {
	switch v := value.(type) {
	case *string:
		if v == nil {
			return nil
		}
		return validatePhone(*v)
	case string:
		return validatePhone(v)
	}
	return nil
}

func validatePhone(phone string) error {
	if phone == "" {
		return nil
	}

	parsed, err := phonenumbers.Parse(phone, "US")
	if err != nil {
		return fmt.Errorf("invalid phone number")
	}

	if !phonenumbers.IsValidNumber(parsed) {
		return fmt.Errorf("invalid phone number")
	}

	return nil
}

func rolesAsAny() []any {
	roles := GetAllRoles()
	out := make([]any, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}

func queryInt(ctx router.Context, name string, def int) int {
	raw := ctx.Query(name, "")
	if raw == "" {
		return def
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}

	return value
}

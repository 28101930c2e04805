package iam

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// SignUpMessage carries everything needed to register an account.
type SignUpMessage struct {
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Phone    string   `json:"phone"`
	Password string   `json:"password"`
	Role     UserRole `json:"role"`
	// Active defaults to true when nil
	Active *bool `json:"active"`
	// UseHashid derives a deterministic id from the email
	UseHashid bool
}

func (e SignUpMessage) Type() string { return "user.signup" }

// Auther runs the registration and credential verification flows
type Auther struct {
	repo         RepositoryManager
	tokenService TokenService
	logger       Logger
	activitySink ActivitySink
}

// NewAuthenticator returns a new Auther
func NewAuthenticator(repo RepositoryManager, tokenService TokenService) *Auther {
	return &Auther{
		repo:         repo,
		tokenService: tokenService,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// TokenService returns the TokenService instance used by this Auther
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// SignUp registers a new account. The email must not resolve to an
// existing record and the password must satisfy the policy rules.
func (s *Auther) SignUp(ctx context.Context, msg SignUpMessage) (*User, error) {
	role := msg.Role
	if role == "" {
		role = RoleStandard
	}

	if !role.IsValid() {
		return nil, goerrors.New("invalid role", goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{
				"role": string(msg.Role),
			})
	}

	if violations := ValidatePasswordPolicy(msg.Password); len(violations) > 0 {
		policyErr := ErrPasswordPolicy.Clone()
		if policyErr == nil {
			return nil, ErrPasswordPolicy
		}
		policyErr.Source = ErrPasswordPolicy
		return nil, policyErr.WithMetadata(map[string]any{
			"violations": PasswordPolicyCodes(violations),
		})
	}

	if _, err := s.repo.Users().GetByEmail(ctx, msg.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "email lookup failed")
	}

	hash, err := HashPassword(msg.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		Email:        msg.Email,
		FullName:     msg.FullName,
		Phone:        msg.Phone,
		PasswordHash: hash,
		Role:         role,
		Active:       msg.Active == nil || *msg.Active,
	}

	if msg.UseHashid {
		if id, err := hashid.NewUUID(msg.Email); err == nil {
			user.ID = id
		}
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created, err := s.repo.Users().CreateTx(ctx, tx, user)
		if err != nil {
			// The unique index backstops the lookup above when two
			// registrations race on the same email.
			return goerrors.Wrap(err, ErrDuplicateEmail.Category, ErrDuplicateEmail.Message).
				WithCode(ErrDuplicateEmail.Code).
				WithTextCode(ErrDuplicateEmail.TextCode)
		}
		user = created
		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed")
	}

	s.emitAuthEvent(ctx, ActivityEventUserRegistered, ActorRef{ID: user.ID.String(), Type: "user"}, user.ID.String(), map[string]any{
		"email": user.Email,
		"role":  string(user.Role),
	})

	return user, nil
}

// SignIn verifies credentials and returns a signed access token.
// Unknown emails and bad passwords produce the same error so callers
// cannot probe which accounts exist.
func (s *Auther) SignIn(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			s.logger.Debug("SignIn unknown identifier", "email", email)
			s.emitAuthEvent(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, "", map[string]any{
				"identifier": email,
				"error":      ErrInvalidCredentials.Message,
			})
			return "", ErrInvalidCredentials
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "identity lookup failed")
	}

	if !VerifyPassword(password, user.PasswordHash) {
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromUser(user), user.ID.String(), map[string]any{
			"identifier": email,
			"error":      ErrInvalidCredentials.Message,
		})
		return "", ErrInvalidCredentials
	}

	if err := RequireActive(user); err != nil {
		s.logger.Warn("SignIn blocked inactive account", "user_id", user.ID.String())
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromUser(user), user.ID.String(), map[string]any{
			"identifier": email,
			"error":      err.Error(),
		})
		return "", err
	}

	token, err := s.tokenService.Issue(NewIdentityFromUser(user), 0)
	if err != nil {
		s.logger.Error("SignIn token issuance error", "error", err)
		s.emitAuthEvent(ctx, ActivityEventLoginFailure, s.actorFromUser(user), user.ID.String(), map[string]any{
			"identifier": email,
			"error":      err.Error(),
		})
		return "", err
	}

	s.emitAuthEvent(ctx, ActivityEventLoginSuccess, s.actorFromUser(user), user.ID.String(), map[string]any{
		"identifier": email,
	})

	return token, nil
}

func (s *Auther) emitAuthEvent(ctx context.Context, eventType ActivityEventType, actor ActorRef, userID string, metadata map[string]any) {
	sink := normalizeActivitySink(s.activitySink)
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		UserID:    userID,
		Metadata:  metadata,
	}

	if event.Metadata == nil {
		event.Metadata = map[string]any{}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	if err := sink.Record(ctx, event); err != nil {
		s.logger.Warn("activity sink record error: %v", err)
	}
}

func (s *Auther) actorFromUser(user *User) ActorRef {
	if user == nil {
		return ActorRef{Type: "unknown"}
	}

	return ActorRef{
		ID:   user.ID.String(),
		Type: "user",
	}
}

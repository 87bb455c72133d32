package auth

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// SignUpMessage carries a new account request. The account is created
// inactive, with no password; a pending registration and activation email
// take it the rest of the way.
type SignUpMessage struct {
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	MiddleName string `json:"middle_name"`
	FamilyName string `json:"family_name"`
	UseHashid  bool
}

func (e SignUpMessage) Type() string { return "user.sign_up" }

func (e SignUpMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Email, validation.Required, is.Email),
		validation.Field(&e.GivenName, validation.Required, validation.Length(1, 100)),
		validation.Field(&e.FamilyName, validation.Required, validation.Length(1, 100)),
		validation.Field(&e.MiddleName, validation.Length(0, 100)),
	)
}

type SignUpHandler struct {
	repo      RepositoryManager
	registrar Registrar
	mailer    Mailer
	config    Config
	from      string
	logger    Logger
}

func NewSignUpHandler(repo RepositoryManager, registrar Registrar, mailer Mailer, config Config, from string) *SignUpHandler {
	return &SignUpHandler{
		repo:      repo,
		registrar: registrar,
		mailer:    mailer,
		config:    config,
		from:      from,
		logger:    defLogger{},
	}
}

func (h *SignUpHandler) WithLogger(logger Logger) *SignUpHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *SignUpHandler) Execute(ctx context.Context, event SignUpMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during sign up",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *SignUpHandler) execute(ctx context.Context, event SignUpMessage) error {
	if err := event.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid sign up payload")
	}

	user := &User{}
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error

		user.Email = event.Email
		user.GivenName = event.GivenName
		user.MiddleName = event.MiddleName
		user.FamilyName = event.FamilyName
		user.Active = false
		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				user.ID = id
			}
		}

		if user, err = h.repo.Users().CreateTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "sign up transaction failed")
	}

	token, err := h.registrar.Register(ctx, user.ID, user.Email)
	if err != nil {
		h.logger.Error("sign up registration error", "error", err)
		return err
	}

	link := ActivationLink(h.config.GetBaseURL(), token)
	body := fmt.Sprintf(
		`<p>Hi %s,</p><p>Finish setting up your account by choosing a password:</p><p><a href="%s">%s</a></p>`,
		user.GivenName, link, link,
	)

	if err := h.mailer.Send(ctx, h.from, user.Email, "Activate your account", body); err != nil {
		h.logger.Error("sign up activation email error", "error", err)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "could not send activation email")
	}

	return nil
}

// ActivationLink builds the public URL a new user follows to complete
// registration.
func ActivationLink(baseURL, token string) string {
	return fmt.Sprintf("%s/sign-up/continue/%s", baseURL, token)
}

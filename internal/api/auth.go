package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/temirov/GAuss/pkg/constants"
	"github.com/temirov/GAuss/pkg/session"
	"go.uber.org/zap"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/model"
)

const (
	contextKeyCurrentUser = "api_current_user"
	authErrorUnauthorized = "unauthorized"
	logEventLoadSession   = "load_session"
)

var (
	// ErrMissingContext reports a nil gin context when setting the current user.
	ErrMissingContext = errors.New("missing context")
	// ErrMissingCurrentUser reports a nil current user when setting auth state.
	ErrMissingCurrentUser = errors.New("missing current user")
)

// CurrentUser captures authenticated account metadata made available to handlers.
type CurrentUser struct {
	Email      string
	Name       string
	PictureURL string
}

// OwnerID returns the identity every storage call is scoped to.
func (currentUser *CurrentUser) OwnerID() string {
	if currentUser == nil {
		return ""
	}
	return model.NormalizeOwnerID(currentUser.Email)
}

// AuthManager resolves authenticated users from the GAuss session cookie.
type AuthManager struct {
	sessionStore sessions.Store
	logger       *zap.Logger
	loginPath    string
}

// NewAuthManager constructs an AuthManager over the process-wide GAuss session store.
// session.NewSession must have been called before requests are served.
func NewAuthManager(logger *zap.Logger) *AuthManager {
	return NewAuthManagerWithStore(session.Store(), logger)
}

// NewAuthManagerWithStore constructs an AuthManager over an explicit session store.
func NewAuthManagerWithStore(sessionStore sessions.Store, logger *zap.Logger) *AuthManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthManager{
		sessionStore: sessionStore,
		logger:       logger,
		loginPath:    constants.LoginPath,
	}
}

// RequireAuthenticatedJSON enforces authentication for JSON API routes.
func (authManager *AuthManager) RequireAuthenticatedJSON() gin.HandlerFunc {
	return func(context *gin.Context) {
		if _, ok := authManager.ensureUser(context); !ok {
			context.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{jsonKeyError: authErrorUnauthorized})
			return
		}
		context.Next()
	}
}

// RequireAuthenticatedWeb redirects anonymous browser requests to the login page.
func (authManager *AuthManager) RequireAuthenticatedWeb() gin.HandlerFunc {
	return func(context *gin.Context) {
		if _, ok := authManager.ensureUser(context); !ok {
			context.Redirect(http.StatusFound, authManager.loginPath)
			context.Abort()
			return
		}
		context.Next()
	}
}

// CurrentUserFromContext loads the current user from the request context.
func CurrentUserFromContext(context *gin.Context) (*CurrentUser, bool) {
	value, exists := context.Get(contextKeyCurrentUser)
	if !exists {
		return nil, false
	}
	currentUser, ok := value.(*CurrentUser)
	return currentUser, ok
}

// SetCurrentUser stores the authenticated user in the request context.
func SetCurrentUser(context *gin.Context, currentUser *CurrentUser) error {
	if context == nil {
		return ErrMissingContext
	}
	if currentUser == nil {
		return ErrMissingCurrentUser
	}
	context.Set(contextKeyCurrentUser, currentUser)
	return nil
}

func (authManager *AuthManager) ensureUser(context *gin.Context) (*CurrentUser, bool) {
	if currentUser, exists := CurrentUserFromContext(context); exists {
		return currentUser, true
	}
	if authManager.sessionStore == nil {
		return nil, false
	}

	sessionInstance, sessionErr := authManager.sessionStore.Get(context.Request, constants.SessionName)
	if sessionErr != nil {
		authManager.logger.Warn(logEventLoadSession, zap.Error(sessionErr))
		return nil, false
	}

	email := strings.TrimSpace(sessionValue(sessionInstance, constants.SessionKeyUserEmail))
	if email == "" {
		return nil, false
	}

	currentUser := &CurrentUser{
		Email:      email,
		Name:       strings.TrimSpace(sessionValue(sessionInstance, constants.SessionKeyUserName)),
		PictureURL: strings.TrimSpace(sessionValue(sessionInstance, constants.SessionKeyUserPicture)),
	}
	context.Set(contextKeyCurrentUser, currentUser)
	return currentUser, true
}

func sessionValue(sessionInstance *sessions.Session, key string) string {
	value, _ := sessionInstance.Values[key].(string)
	return value
}

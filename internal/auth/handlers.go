// Package auth mounts the GAuss Google login flow. OAuth redirect URIs follow the
// public host a request arrived on, so one deployment can sit behind several proxies.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/temirov/GAuss/pkg/constants"
	"github.com/temirov/GAuss/pkg/gauss"
	"go.uber.org/zap"
)

const (
	headerForwarded        = "Forwarded"
	headerXForwardedProto  = "X-Forwarded-Proto"
	headerXForwardedScheme = "X-Forwarded-Scheme"
	headerXForwardedHost   = "X-Forwarded-Host"
	headerXForwardedPort   = "X-Forwarded-Port"
	forwardedProtoKey      = "proto"
	forwardedHostKey       = "host"
	urlSchemeHTTPS         = "https"

	logEventResolveHandlers = "resolve_oauth_handlers"
	errorMessageService     = "auth: create oauth service"
	errorMessageHandlers    = "auth: create oauth handlers"
	errorMessageBaseURL     = "auth: parse public base url"
)

// ErrUnresolvedHost reports a request whose public host cannot be determined.
var ErrUnresolvedHost = errors.New("auth: unresolved request host")

// Config captures the Google OAuth client and where users land after login.
type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	PublicBaseURL      string
	LocalRedirectPath  string
	Scopes             []string
	LoginTemplate      string
	Logger             *zap.Logger
}

// Handlers serves login, Google redirect, callback and logout.
type Handlers struct {
	configuration Config
	publicBaseURL *url.URL
	fallback      *gauss.Handlers
	loginMux      *http.ServeMux
	byBaseURL     *gaussHandlerCache
	logger        *zap.Logger
}

// NewHandlers validates the configuration and builds the default GAuss handlers for PublicBaseURL.
func NewHandlers(configuration Config) (*Handlers, error) {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	publicBaseURL, parseErr := url.Parse(configuration.PublicBaseURL)
	if parseErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageBaseURL, parseErr)
	}

	fallback, buildErr := buildGaussHandlers(configuration, configuration.PublicBaseURL)
	if buildErr != nil {
		return nil, buildErr
	}
	loginMux := http.NewServeMux()
	fallback.RegisterRoutes(loginMux)

	return &Handlers{
		configuration: configuration,
		publicBaseURL: publicBaseURL,
		fallback:      fallback,
		loginMux:      loginMux,
		byBaseURL:     newGaussHandlerCache(),
		logger:        logger,
	}, nil
}

// RegisterRoutes wires the OAuth endpoints to the provided ServeMux.
func (handlers *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle(constants.LoginPath, handlers.loginMux)
	mux.HandleFunc(constants.GoogleAuthPath, handlers.perRequest(func(gaussHandlers *gauss.Handlers) http.HandlerFunc {
		return gaussHandlers.Login
	}))
	mux.HandleFunc(constants.CallbackPath, handlers.perRequest(func(gaussHandlers *gauss.Handlers) http.HandlerFunc {
		return gaussHandlers.Callback
	}))
	mux.HandleFunc(constants.LogoutPath, handlers.fallback.Logout)
}

// perRequest dispatches to the GAuss handlers built for the request's public base URL.
func (handlers *Handlers) perRequest(selectHandler func(*gauss.Handlers) http.HandlerFunc) http.HandlerFunc {
	return func(responseWriter http.ResponseWriter, request *http.Request) {
		baseURL, baseErr := RequestBaseURL(request, handlers.publicBaseURL)
		if baseErr != nil {
			handlers.logger.Warn(logEventResolveHandlers, zap.Error(baseErr))
			http.Error(responseWriter, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		gaussHandlers, buildErr := handlers.byBaseURL.getOrBuild(baseURL, func() (*gauss.Handlers, error) {
			return buildGaussHandlers(handlers.configuration, baseURL)
		})
		if buildErr != nil {
			handlers.logger.Warn(logEventResolveHandlers, zap.String("base_url", baseURL), zap.Error(buildErr))
			http.Error(responseWriter, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		selectHandler(gaussHandlers)(responseWriter, request)
	}
}

func buildGaussHandlers(configuration Config, baseURL string) (*gauss.Handlers, error) {
	service, serviceErr := gauss.NewService(
		configuration.GoogleClientID,
		configuration.GoogleClientSecret,
		baseURL,
		configuration.LocalRedirectPath,
		configuration.Scopes,
		configuration.LoginTemplate,
	)
	if serviceErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageService, serviceErr)
	}
	gaussHandlers, handlersErr := gauss.NewHandlers(service)
	if handlersErr != nil {
		return nil, fmt.Errorf("%s: %w", errorMessageHandlers, handlersErr)
	}
	return gaussHandlers, nil
}

type gaussHandlerCache struct {
	mutex   sync.RWMutex
	entries map[string]*gauss.Handlers
}

func newGaussHandlerCache() *gaussHandlerCache {
	return &gaussHandlerCache{entries: make(map[string]*gauss.Handlers)}
}

func (cache *gaussHandlerCache) getOrBuild(key string, build func() (*gauss.Handlers, error)) (*gauss.Handlers, error) {
	cache.mutex.RLock()
	existing := cache.entries[key]
	cache.mutex.RUnlock()
	if existing != nil {
		return existing, nil
	}

	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	if existing = cache.entries[key]; existing != nil {
		return existing, nil
	}
	built, buildErr := build()
	if buildErr != nil {
		return nil, buildErr
	}
	cache.entries[key] = built
	return built, nil
}

// RequestBaseURL derives the public base URL of a request from proxy headers,
// falling back to the request itself and then to the configured base URL.
func RequestBaseURL(request *http.Request, configured *url.URL) (string, error) {
	forwarded := request.Header.Get(headerForwarded)

	scheme := firstNonEmpty(
		forwardedDirective(forwarded, forwardedProtoKey),
		firstListValue(request.Header.Get(headerXForwardedProto)),
		firstListValue(request.Header.Get(headerXForwardedScheme)),
	)
	if scheme == "" && request.TLS != nil {
		scheme = urlSchemeHTTPS
	}
	if scheme == "" && request.URL != nil {
		scheme = request.URL.Scheme
	}
	if scheme == "" {
		scheme = configured.Scheme
	}
	if scheme == "" {
		scheme = urlSchemeHTTPS
	}

	host := firstNonEmpty(
		forwardedDirective(forwarded, forwardedHostKey),
		firstListValue(request.Header.Get(headerXForwardedHost)),
		request.Host,
		configured.Host,
	)
	if host == "" {
		return "", ErrUnresolvedHost
	}
	if port := firstListValue(request.Header.Get(headerXForwardedPort)); port != "" && !strings.Contains(host, ":") {
		host = host + ":" + port
	}

	resolved := *configured
	resolved.Scheme = strings.ToLower(scheme)
	resolved.Host = host
	return resolved.String(), nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// firstListValue returns the first non-empty entry of a comma-separated header.
func firstListValue(rawValue string) string {
	for _, segment := range strings.Split(rawValue, ",") {
		if trimmed := strings.TrimSpace(segment); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

// forwardedDirective extracts one key from an RFC 7239 Forwarded header.
func forwardedDirective(headerValue string, key string) string {
	for _, element := range strings.Split(headerValue, ",") {
		for _, pair := range strings.Split(element, ";") {
			name, value, found := strings.Cut(strings.TrimSpace(pair), "=")
			if !found || !strings.EqualFold(strings.TrimSpace(name), key) {
				continue
			}
			if unquoted := strings.Trim(strings.TrimSpace(value), `"`); unquoted != "" {
				return unquoted
			}
		}
	}
	return ""
}

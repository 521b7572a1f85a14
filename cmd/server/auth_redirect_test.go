package main

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/temirov/GAuss/pkg/constants"
	"github.com/temirov/GAuss/pkg/gauss"
	"github.com/temirov/GAuss/pkg/session"

	"github.com/MarkoPoloResearchLab/listingtraffic/internal/auth"
)

const (
	testGoogleClientID     = "test-client-id.apps.googleusercontent.com"
	testGoogleClientSecret = "test-client-secret"
)

func newTestOAuthMux(testingT *testing.T) *http.ServeMux {
	testingT.Helper()
	session.NewSession([]byte(testSessionSecret))

	oauthHandlers, handlersErr := auth.NewHandlers(auth.Config{
		GoogleClientID:     testGoogleClientID,
		GoogleClientSecret: testGoogleClientSecret,
		PublicBaseURL:      "http://traffic.example.com",
		LocalRedirectPath:  postLoginRedirectPath,
		Scopes:             gauss.ScopeStrings(gauss.DefaultScopes),
	})
	require.NoError(testingT, handlersErr)

	serveMux := http.NewServeMux()
	oauthHandlers.RegisterRoutes(serveMux)
	return serveMux
}

func TestGoogleAuthRedirectHonorsForwardedProtocol(testingT *testing.T) {
	testCases := []struct {
		name        string
		headers     map[string]string
		expectedURI string
	}{
		{
			name:        "x-forwarded-proto",
			headers:     map[string]string{"X-Forwarded-Proto": "https"},
			expectedURI: "https://traffic.example.com/auth/google/callback",
		},
		{
			name:        "forwarded header with host",
			headers:     map[string]string{"Forwarded": `proto=https;host="reports.example.com"`},
			expectedURI: "https://reports.example.com/auth/google/callback",
		},
		{
			name:        "forwarded port",
			headers:     map[string]string{"X-Forwarded-Proto": "http", "X-Forwarded-Port": "8443"},
			expectedURI: "http://traffic.example.com:8443/auth/google/callback",
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		testingT.Run(testCase.name, func(testingT *testing.T) {
			serveMux := newTestOAuthMux(testingT)

			request := httptest.NewRequest(http.MethodGet, constants.GoogleAuthPath, nil)
			request.Host = "traffic.example.com"
			for name, value := range testCase.headers {
				request.Header.Set(name, value)
			}
			recorder := httptest.NewRecorder()
			serveMux.ServeHTTP(recorder, request)

			require.Equal(testingT, http.StatusFound, recorder.Code)
			redirectURL, parseErr := url.Parse(recorder.Header().Get("Location"))
			require.NoError(testingT, parseErr)
			require.Equal(testingT, testCase.expectedURI, redirectURL.Query().Get("redirect_uri"))
		})
	}
}

package fiber

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/glupper/vouch/core"
)

func TestMapErrorToStatus_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{
			name:       "maps ErrDuplicateAccount to 409",
			err:        core.ErrDuplicateAccount,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "maps ErrDuplicateSocialIdent to 409",
			err:        core.ErrDuplicateSocialIdent,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "maps ErrAccountNotFound to 404",
			err:        core.ErrAccountNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "maps ErrInvalidAccountState to 403",
			err:        core.ErrInvalidAccountState,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "maps ErrInvalidCredentials to 401",
			err:        core.ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "maps ErrInvalidInviteCode to 400",
			err:        core.ErrInvalidInviteCode,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "maps wrapped ErrInvalidInviteCode to 400",
			err:        fmt.Errorf("%w: code has expired", core.ErrInvalidInviteCode),
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "maps ErrUsernameRequired to 400",
			err:        core.ErrUsernameRequired,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "maps ErrEmailRequired to 400",
			err:        core.ErrEmailRequired,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "maps ErrPasswordRequired to 400",
			err:        core.ErrPasswordRequired,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "maps ErrInvalidMaxUses to 400",
			err:        core.ErrInvalidMaxUses,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "maps ErrInvalidCredentialMix to 400",
			err:        core.ErrInvalidCredentialMix,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "defaults unknown errors to 500",
			err:        errors.New("unknown error"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			// Act
			status := mapErrorToStatus(test.err)

			// Assert
			if status != test.wantStatus {
				t.Errorf("mapErrorToStatus should map error to %d; got %d", test.wantStatus, status)
			}
		})
	}
}

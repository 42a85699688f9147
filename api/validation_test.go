package api_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/signaldeck/dashboard/api"
)

func TestCredentialsValidate(t *testing.T) {
	tests := []struct {
		name    string
		form    api.Credentials
		wantMsg string
	}{
		{
			name: "valid",
			form: api.Credentials{Email: "trader@example.com", Password: "opensesame1"},
		},
		{
			name:    "missing email",
			form:    api.Credentials{Password: "opensesame1"},
			wantMsg: "email is required",
		},
		{
			name:    "malformed email",
			form:    api.Credentials{Email: "not-an-email", Password: "opensesame1"},
			wantMsg: "enter a valid email address",
		},
		{
			name:    "missing password",
			form:    api.Credentials{Email: "trader@example.com"},
			wantMsg: "password is required",
		},
		{
			name:    "short password",
			form:    api.Credentials{Email: "trader@example.com", Password: "short"},
			wantMsg: "password must be at least 8 characters",
		},
		{
			name:    "overlong password",
			form:    api.Credentials{Email: "trader@example.com", Password: strings.Repeat("x", 101)},
			wantMsg: "password must be at most 100 characters",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.form.Validate()
			if tc.wantMsg == "" {
				require.NoError(t, err)
				return
			}

			var vErr *api.ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Equal(t, tc.wantMsg, vErr.Message)
		})
	}
}

func TestRegistrationValidate(t *testing.T) {
	valid := api.Registration{
		Email:           "trader@example.com",
		Password:        "opensesame1",
		ConfirmPassword: "opensesame1",
		FullName:        "Ada Trader",
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, valid.Validate())
	})

	t.Run("valid without name", func(t *testing.T) {
		form := valid
		form.FullName = ""
		require.NoError(t, form.Validate())
	})

	t.Run("password mismatch", func(t *testing.T) {
		form := valid
		form.ConfirmPassword = "somethingelse1"

		var vErr *api.ValidationError
		require.ErrorAs(t, form.Validate(), &vErr)
		require.Equal(t, "passwords do not match", vErr.Message)
	})

	t.Run("missing confirmation", func(t *testing.T) {
		form := valid
		form.ConfirmPassword = ""

		var vErr *api.ValidationError
		require.ErrorAs(t, form.Validate(), &vErr)
		require.Equal(t, "confirm your password", vErr.Message)
	})

	t.Run("overlong name", func(t *testing.T) {
		form := valid
		form.FullName = strings.Repeat("a", 101)

		var vErr *api.ValidationError
		require.ErrorAs(t, form.Validate(), &vErr)
		require.Equal(t, "name must be at most 100 characters", vErr.Message)
	})
}

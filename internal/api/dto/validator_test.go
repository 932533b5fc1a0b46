package dto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/diet-tracker/pkg/util"
)

func TestValidator_ReportsJSONFieldNames(t *testing.T) {
	v := NewValidator()

	err := v.Struct(&RegisterRequest{Email: "not-an-email", Password: "weak", Gender: "robot"})
	require.Error(t, err)

	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidationFailed, de.Code)
	assert.Contains(t, de.Details, "first_name")
	assert.Contains(t, de.Details, "email")
	assert.Contains(t, de.Details, "password")
	assert.Contains(t, de.Details, "gender")
}

func TestValidator_AcceptsGoodRequests(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.Struct(&LoginRequest{Email: "ada@example.com", Password: "x"}))
	assert.NoError(t, v.Struct(&RegisterRequest{FirstName: "Ada", Email: "ada@example.com", Password: "Str0ng!Pass", Gender: "female"}))
	assert.NoError(t, v.Struct(&ResetPasswordRequest{ResetToken: "t", Code: "0421", NewPassword: "Str0ng!Pass"}))
	assert.NoError(t, v.Struct(&UpdateProfileRequest{}))
}

func TestValidator_ProfilePasswordPair(t *testing.T) {
	v := NewValidator()

	err := v.Struct(&UpdateProfileRequest{NewPassword: "Str0ng!Pass"})
	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, "old_password is required when new_password is set", de.Details["old_password"])

	empty := ""
	err = v.Struct(&UpdateProfileRequest{FirstName: &empty})
	de = apperrors.ToDomainError(err)
	require.NotNil(t, de)
	assert.Contains(t, de.Details, "first_name")
}

func TestValidator_ActivationCodeShape(t *testing.T) {
	v := NewValidator()

	err := v.Struct(&ActivateRequest{ActivationToken: "t", ActivationCode: "12a4"})
	de := apperrors.ToDomainError(err)
	require.NotNil(t, de)
	assert.Equal(t, "activation_code must contain only digits", de.Details["activation_code"])
}

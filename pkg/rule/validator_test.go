package rule_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/studiovault/pkg/internal/types"
	"github.com/yeisme/studiovault/pkg/rule"
)

func TestEngine(t *testing.T) {
	assert.NotNil(t, rule.Engine())
	assert.Same(t, rule.Engine(), rule.Engine())
}

func TestValidateStructUsesRequestFieldNames(t *testing.T) {
	require.NoError(t, rule.ValidateStruct(types.UploadMediaRequest{Kind: "gallery", Folder: "weddings"}))

	err := rule.ValidateStruct(types.UploadMediaRequest{})
	require.Error(t, err)

	errs := rule.Errors(err)
	require.Contains(t, errs, "kind")
	assert.Equal(t, "failed on required", errs["kind"])
	assert.NotContains(t, errs, "folder")
}

func TestErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, rule.Errors(nil))
	assert.Nil(t, rule.Errors(assert.AnError))
}

func TestValidateVar(t *testing.T) {
	require.NoError(t, rule.ValidateVar("studio@example.com", "required,email"))
	require.Error(t, rule.ValidateVar("invalid-email", "required,email"))
	require.NoError(t, rule.ValidateVar(25, "gte=18"))
	require.Error(t, rule.ValidateVar(15, "gte=18"))
}

func TestRegisterValidation(t *testing.T) {
	err := rule.RegisterValidation("even_length", func(fl validator.FieldLevel) bool {
		str, ok := fl.Field().Interface().(string)

		return ok && len(str)%2 == 0
	})
	require.NoError(t, err)

	require.NoError(t, rule.ValidateVar("test", "even_length"))
	require.Error(t, rule.ValidateVar("test1", "even_length"))
}

func TestRegisterAlias(t *testing.T) {
	rule.RegisterAlias("min_required", "required,min=3")

	require.NoError(t, rule.ValidateVar("abc", "min_required"))
	require.Error(t, rule.ValidateVar("ab", "min_required"))

	errs := rule.Errors(rule.ValidateStruct(types.MediaURLRequest{Key: ""}))
	assert.Contains(t, errs, "key")
}

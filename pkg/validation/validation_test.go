package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type progressInput struct {
	Progress string `validate:"omitempty,rfqprogress"`
}

func TestRFQProgressRule(t *testing.T) {
	v := validator.New()
	require.NoError(t, Register(v))

	assert.NoError(t, v.Struct(progressInput{Progress: "Sent to Customer (Done)"}))
	assert.NoError(t, v.Struct(progressInput{Progress: "Waiting for Customer’s BOM"}))
	assert.NoError(t, v.Struct(progressInput{}))
	assert.Error(t, v.Struct(progressInput{Progress: "Done-ish"}))
}

package validation

import (
	"sync"
	"testing"

	"github.com/gin-gonic/gin/binding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupForm struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func TestStruct_ReportsMissingFieldsByJSONName(t *testing.T) {
	err := Struct(signupForm{Email: "a@x.com"})
	require.Error(t, err)
	assert.Equal(t, []string{"password", "username"}, MissingFields(err))
}

func TestStruct_FieldRules(t *testing.T) {
	err := Struct(signupForm{Username: "al", Email: "not-an-email", Password: "weak"})
	require.Error(t, err)
	assert.Empty(t, MissingFields(err))

	details := ToDetails(err)
	assert.Equal(t, "must be a valid email", details["email"])
	assert.Equal(t, "must be at least 3 characters long", details["username"])
	assert.NotContains(t, details, "password")

	assert.NoError(t, Struct(signupForm{Username: "alice", Email: "alice@x.com", Password: "Str0ng!pass"}))
}

func TestToDetails_NonValidationError(t *testing.T) {
	assert.Nil(t, ToDetails(nil))
	assert.Equal(t, map[string]string{"payload": "invalid payload"}, ToDetails(assert.AnError))
}

type loginBody struct {
	Email string `json:"email" binding:"required,email"`
}

func TestInit_BindingReportsJSONNames(t *testing.T) {
	Init()
	err := binding.Validator.ValidateStruct(loginBody{})
	require.Error(t, err)
	assert.Equal(t, []string{"email"}, MissingFields(err))
}

func TestStruct_ConcurrentFirstUse(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, Struct(signupForm{Username: "alice", Email: "alice@x.com", Password: "x"}))
		}()
	}
	wg.Wait()
}

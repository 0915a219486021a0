package errs

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewError_Defaults_Status_To_OK(t *testing.T) {
	req := require.New(t)

	err := NewError(ErrInvalidParams)

	req.Equal(ErrInvalidParams, err.Code)
	req.Equal(http.StatusOK, err.Status)
}

func TestNewError_Formats_Details(t *testing.T) {
	err := NewError(ErrReceiverOffline, "bob")

	require.Equal(t, "User bob is not online.", err.Message)
}

func TestNewError_Unknown_Code_Falls_Back(t *testing.T) {
	req := require.New(t)

	err := NewError(424242)

	req.Equal(ErrUnknown, err.Code)
	req.Equal(http.StatusInternalServerError, err.Status)
}

func TestNewError_Unknown_Hides_Underlying_Error(t *testing.T) {
	err := NewError(ErrUnknown, errors.New("database password leaked"))

	require.NotContains(t, err.Message, "password")
}

func TestNewError_Returns_Independent_Copies(t *testing.T) {
	first := NewError(ErrReceiverOffline, "alice")
	second := NewError(ErrReceiverOffline, "bob")

	require.NotEqual(t, first.Message, second.Message)
	require.Equal(t, "User %s is not online.", errorMap[ErrReceiverOffline].Message)
}

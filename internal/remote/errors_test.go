package remote

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"status 429", &StatusError{Code: 429}, RateLimited},
		{"wrapped status 503", fmt.Errorf("call: %w", &StatusError{Code: 503}), ServiceOverloaded},
		{"status 401", &StatusError{Code: 401}, InvalidCredentials},
		{"status 504", &StatusError{Code: 504}, TimedOut},
		{"quota marker", errors.New("Error 429, RESOURCE_EXHAUSTED"), RateLimited},
		{"quota word", errors.New("daily quota reached"), RateLimited},
		{"overloaded marker", errors.New("The model is overloaded"), ServiceOverloaded},
		{"unavailable marker", errors.New("UNAVAILABLE"), ServiceOverloaded},
		{"api key marker", errors.New("API_KEY_INVALID"), InvalidCredentials},
		{"timeout marker", errors.New("request timeout"), TimedOut},
		{"deadline", fmt.Errorf("wrap: %w", context.DeadlineExceeded), TimedOut},
		{"net timeout", timeoutErr{}, TimedOut},
		{"unknown", errors.New("boom"), Unknown},
		{"nil", nil, Unknown},
		{"status 500 with no marker", &StatusError{Code: 500, Body: "internal"}, Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestMessage(t *testing.T) {
	assert.Contains(t, Message(RateLimited, nil), "quota")
	assert.Contains(t, Message(ServiceOverloaded, nil), "overloaded")
	assert.Contains(t, Message(InvalidCredentials, nil), "API key")
	assert.Contains(t, Message(TimedOut, nil), "timed out")
	assert.Equal(t, "Remote service error: boom", Message(Unknown, errors.New("boom")))
}

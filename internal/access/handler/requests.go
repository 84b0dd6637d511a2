package handler

import (
	dErrors "addongate/pkg/domain-errors"
)

type validateRequest struct {
	Token string `json:"token"`
	// Identity is the caller-asserted email, only used on the degraded
	// fallback path.
	Identity string `json:"identity,omitempty"`
}

func (r *validateRequest) Validate() error {
	return nil
}

type configRequest struct {
	Token string `json:"token"`
}

func (r *configRequest) Validate() error {
	return nil
}

type loginRequest struct {
	Password string `json:"password"`
}

func (r *loginRequest) Validate() error {
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

type requestIDRequest struct {
	RequestID string `json:"requestId"`
}

func (r *requestIDRequest) Validate() error {
	if r.RequestID == "" {
		return dErrors.New(dErrors.CodeValidation, "requestId is required")
	}
	return nil
}

type grantTempRequest struct {
	RequestID     string `json:"requestId"`
	DurationHours int    `json:"duration,omitempty"`
}

func (r *grantTempRequest) Validate() error {
	if r.RequestID == "" {
		return dErrors.New(dErrors.CodeValidation, "requestId is required")
	}
	if r.DurationHours < 0 {
		return dErrors.New(dErrors.CodeValidation, "duration must be a positive number of hours")
	}
	return nil
}

type denyRequest struct {
	RequestID string `json:"requestId"`
	Reason    string `json:"reason,omitempty"`
}

func (r *denyRequest) Validate() error {
	if r.RequestID == "" {
		return dErrors.New(dErrors.CodeValidation, "requestId is required")
	}
	return nil
}

type identityRequest struct {
	Email string `json:"email"`
}

func (r *identityRequest) Validate() error {
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	return nil
}

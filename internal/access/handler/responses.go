package handler

import (
	"encoding/json"
	"time"

	"addongate/internal/access/models"
	"addongate/internal/bundle"
)

type validateResponse struct {
	Authorized bool   `json:"authorized"`
	Temporary  bool   `json:"temporary,omitempty"`
	Identity   string `json:"identity,omitempty"`
	Verified   bool   `json:"verified"`
	Reason     string `json:"reason,omitempty"`
	RequestID  string `json:"requestId,omitempty"`
}

func newValidateResponse(d models.Decision) validateResponse {
	return validateResponse{
		Authorized: d.Authorized(),
		Temporary:  d.Temporary(),
		Identity:   d.Identity,
		Verified:   d.Verified,
		Reason:     d.Reason,
		RequestID:  d.RequestID,
	}
}

type configResponse struct {
	DefaultAddons             []json.RawMessage `json:"defaultAddons"`
	DefaultStreamingServerURL string            `json:"defaultStreamingServerUrl"`
}

func newConfigResponse(b bundle.Bundle) configResponse {
	addons := b.DefaultAddons
	if addons == nil {
		addons = []json.RawMessage{}
	}
	return configResponse{
		DefaultAddons:             addons,
		DefaultStreamingServerURL: b.DefaultStreamingServerURL,
	}
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type transitionResponse struct {
	Success   bool                   `json:"success"`
	Message   string                 `json:"message,omitempty"`
	Request   *models.PendingRequest `json:"request,omitempty"`
	ExpiresAt *time.Time             `json:"expiresAt,omitempty"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type listResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

func newListResponse[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items, Count: len(items)}
}

package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSystemHandlerHealthz(t *testing.T) {
	h := NewSystemHandler(nil, nil, nil, nil)
	w, c := newTestContext(http.MethodGet, "/healthz")

	h.Healthz(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSystemHandlerReadyzPanicsWithNilStores(t *testing.T) {
	h := &SystemHandler{}
	_, c := newTestContext(http.MethodGet, "/readyz")

	require.Panics(t, func() { h.Readyz(c) })
}
